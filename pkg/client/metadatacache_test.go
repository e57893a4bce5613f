package client_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/pkgregistry-client/pkg/client"
	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

var _ = Describe("MetadataCache", func() {
	var (
		cache *client.MetadataCache
		reg   registry.Registry
		id    registry.RegistryIdentity
		v     registry.Version
	)

	BeforeEach(func() {
		reg = registry.Registry{URL: "https://registry.example.test"}
		id = registry.RegistryIdentity{Scope: "mona", Name: "lib"}
		var err error
		v, err = registry.ParseVersion("1.0.0")
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with a long TTL", func() {
		BeforeEach(func() {
			cache = client.NewMetadataCache(time.Hour)
		})

		It("misses before any Put", func() {
			_, ok := cache.Get(reg, id, v)
			Expect(ok).To(BeFalse())
		})

		It("returns what was Put", func() {
			author := "mona"
			meta := registry.PackageVersionMetadata{Registry: reg, Author: &author}
			cache.Put(reg, id, v, meta)

			got, ok := cache.Get(reg, id, v)
			Expect(ok).To(BeTrue())
			Expect(*got.Author).To(Equal("mona"))
		})

		It("distinguishes entries by version", func() {
			meta := registry.PackageVersionMetadata{Registry: reg}
			cache.Put(reg, id, v, meta)

			other, err := registry.ParseVersion("2.0.0")
			Expect(err).NotTo(HaveOccurred())
			_, ok := cache.Get(reg, id, other)
			Expect(ok).To(BeFalse())
		})
	})

	Context("with a TTL of zero duration", func() {
		BeforeEach(func() {
			cache = client.NewMetadataCache(0)
		})

		It("treats every entry as immediately expired", func() {
			cache.Put(reg, id, v, registry.PackageVersionMetadata{Registry: reg})
			_, ok := cache.Get(reg, id, v)
			Expect(ok).To(BeFalse())
		})
	})
})
