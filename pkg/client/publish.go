package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/quotedprintable"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// PublishRequest is the input to Publish: the source archive is required;
// Signature and Metadata are optional.
type PublishRequest struct {
	SourceArchive   []byte
	SignatureBase64 []byte
	SignatureFormat string
	Metadata        json.RawMessage
}

// PublishOutcome is the projected result of publish (§4.5). Accepted is
// false for a 201 (published), which sets Location, and true for a 202
// (processing), which sets StatusURL and, when sent, RetryAfter.
type PublishOutcome struct {
	Accepted   bool // true when the registry answered 202 (async processing)
	Location   string
	StatusURL  string
	RetryAfter *time.Duration
}

// encodePublishBody builds the multipart body of §4.5's publish encoding:
// source-archive, then an optional source-archive-signature, then an
// optional metadata part, in that declared order, with boundary set to a
// random UUID.
func encodePublishBody(req PublishRequest) (body []byte, contentType string, signatureFormatHeader string, err error) {
	if len(req.SignatureBase64) > 0 && req.SignatureFormat == "" {
		return nil, "", "", &registry.MissingSignatureFormatError{}
	}

	boundary := uuid.NewString()
	var buf bytes.Buffer

	writePart := func(name, partContentType, transferEncoding string, content []byte) {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Disposition: form-data; name=%q\r\n", name)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", partContentType)
		if transferEncoding != "" {
			fmt.Fprintf(&buf, "Content-Transfer-Encoding: %s\r\n", transferEncoding)
		}
		buf.WriteString("\r\n")
		buf.Write(content)
		buf.WriteString("\r\n")
	}

	writePart("source-archive", "application/zip", "", req.SourceArchive)

	if len(req.SignatureBase64) > 0 {
		writePart("source-archive-signature", "application/octet-stream", "", req.SignatureBase64)
		signatureFormatHeader = req.SignatureFormat
	}

	if len(req.Metadata) > 0 {
		var qp bytes.Buffer
		w := quotedprintable.NewWriter(&qp)
		if _, werr := w.Write(req.Metadata); werr != nil {
			return nil, "", "", &registry.InvalidResponseError{Reason: werr.Error()}
		}
		if werr := w.Close(); werr != nil {
			return nil, "", "", &registry.InvalidResponseError{Reason: werr.Error()}
		}
		writePart("metadata", "application/json", "quoted-printable", qp.Bytes())
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes(), fmt.Sprintf("multipart/form-data;boundary=%q", boundary), signatureFormatHeader, nil
}

// Publish is publish (§4.5): encode req and PUT it to the package-version
// endpoint. Fails *MissingSignatureFormat* before any network I/O when a
// signature is supplied without a format (S5).
func (c *Client) Publish(ctx context.Context, scope, name string, version registry.Version, req PublishRequest, opts OperationOptions) (*PublishOutcome, error) {
	id, reg, err := c.resolve(scope, name)
	if err != nil {
		return nil, err
	}

	body, contentType, sigFormatHeader, err := encodePublishBody(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.startSpan(ctx, opts, "publish", attrRegistry.String(reg.URL), attrScope.String(id.Scope), attrName.String(id.Name), attribute.String("pkgregistry.version", version.String()))
	defer span.End()

	if c.isCancelled() {
		return nil, context.Canceled
	}
	if err := c.availability.Guard(ctx, reg); err != nil {
		recordSpanFailure(ctx, err)
		return nil, err
	}

	reqCtx := ctx
	if timeout := opts.timeoutOrDefault(c.defaultTimeout); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	headers := map[string]string{
		"Content-Type": contentType,
		"Expect":       "100-continue",
		"Prefer":       "respond-async",
	}
	if sigFormatHeader != "" {
		headers["X-Swift-Package-Signature-Format"] = sigFormatHeader
	}

	url := fmt.Sprintf("%s/%s/%s/%s", reg.URL, id.Scope, id.Name, version.String())
	resp, err := c.transport.Execute(reqCtx, Request{
		Method:  "PUT",
		URL:     url,
		Headers: headers,
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		err = &registry.FailedPublishingError{Registry: reg, Package: id, Version: version, Cause: err}
		recordSpanFailure(ctx, err)
		return nil, err
	}

	switch resp.StatusCode {
	case 201:
		return &PublishOutcome{Accepted: false, Location: resp.Header.Get("Location")}, nil
	case 202:
		loc := resp.Header.Get("Location")
		if loc == "" {
			err := &registry.MissingPublishingLocationError{}
			recordSpanFailure(ctx, err)
			return nil, err
		}
		outcome := &PublishOutcome{Accepted: true, StatusURL: loc}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := time.ParseDuration(ra + "s"); perr == nil {
				outcome.RetryAfter = &secs
			}
		}
		return outcome, nil
	default:
		err := mapErrorStatus(reg, resp, []int{201, 202})
		recordSpanFailure(ctx, err)
		return nil, err
	}
}
