package client_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/pkgregistry-client/pkg/client"
	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

func TestAvailability(t *testing.T) {
	t.Parallel()
	RegisterFailHandler(Fail)
	RunSpecs(t, "AvailabilityGate Suite")
}

type stubTransport struct {
	statusCode int
	calls      int
	header     http.Header
}

func (s *stubTransport) Execute(_ context.Context, _ client.Request) (client.Response, error) {
	s.calls++
	return client.Response{StatusCode: s.statusCode, Header: s.header}, nil
}

func (s *stubTransport) Download(_ context.Context, _ client.Request, _ string, _ client.ProgressFunc) (client.Response, error) {
	return client.Response{}, nil
}

var _ = Describe("AvailabilityGate", func() {
	var (
		transport *stubTransport
		gate      *client.AvailabilityGate
		reg       registry.Registry
	)

	BeforeEach(func() {
		transport = &stubTransport{statusCode: http.StatusOK, header: http.Header{}}
		gate = client.NewAvailabilityGate(transport, time.Minute)
		reg = registry.Registry{URL: "https://registry.example.test", SupportsAvailability: true}
	})

	Context("when the registry does not support availability", func() {
		It("reports Available without issuing a request", func() {
			reg.SupportsAvailability = false
			status, err := gate.Check(context.Background(), reg)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Kind).To(Equal(registry.AvailabilityAvailable))
			Expect(transport.calls).To(Equal(0))
		})
	})

	Context("when the registry answers 200", func() {
		It("reports Available and caches the result", func() {
			status, err := gate.Check(context.Background(), reg)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Kind).To(Equal(registry.AvailabilityAvailable))

			_, err = gate.Check(context.Background(), reg)
			Expect(err).NotTo(HaveOccurred())
			Expect(transport.calls).To(Equal(1), "second check within TTL must be served from cache")
		})
	})

	Context("when the registry answers 404", func() {
		It("reports Unavailable, and Guard rejects with RegistryNotAvailableError", func() {
			transport.statusCode = http.StatusNotFound
			err := gate.Guard(context.Background(), reg)
			Expect(err).To(HaveOccurred())
			var want *registry.RegistryNotAvailableError
			Expect(err).To(BeAssignableToTypeOf(want))
		})
	})

	Context("when the registry answers an unrecognized error status", func() {
		It("reports an Error status, and Guard surfaces its message", func() {
			transport.statusCode = http.StatusInternalServerError
			err := gate.Guard(context.Background(), reg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(reg.URL))
			Expect(err.Error()).To(ContainSubstring("unknown server error (500)"))
		})
	})
})
