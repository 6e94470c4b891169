package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/membreg/reconciler/internal/registry"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("registry client", func() {
	var (
		ctx    context.Context
		server *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	serve := func(status int, body string) *registry.HTTPClient {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		return registry.NewHTTPClient(server.URL, "", 5*time.Second)
	}

	Context("successful lookups", func() {
		It("requests the registration with the api key", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/v1/registrations/0123456789"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer secret"))

				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"is_registered":true,"location_code":"0412","status_label":"ACTIVE","venue_name":"Town Hall","region_codes":{"county":"07","ward":12}}`))
			}))
			c := registry.NewHTTPClient(server.URL, "secret", 5*time.Second)

			outcome, err := c.Lookup(ctx, "0123456789")
			Expect(err).To(BeNil())
			Expect(outcome.IsRegistered).To(BeTrue())
			Expect(*outcome.LocationCode).To(Equal("0412"))
			Expect(outcome.StatusLabel).To(Equal("ACTIVE"))
			Expect(*outcome.VenueName).To(Equal("Town Hall"))
			Expect(outcome.RegionCodes).To(HaveKeyWithValue("county", "07"))
			Expect(outcome.RegionCodes).To(HaveKeyWithValue("ward", "12"))
		})

		It("omits the authorization header without an api key", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("Authorization")).To(BeEmpty())
				_, _ = w.Write([]byte(`{"is_registered":false}`))
			}))
			c := registry.NewHTTPClient(server.URL, "", 5*time.Second)

			outcome, err := c.Lookup(ctx, "0123456789")
			Expect(err).To(BeNil())
			Expect(outcome.IsRegistered).To(BeFalse())
			Expect(outcome.LocationCode).To(BeNil())
		})

		It("treats an empty location code as absent", func() {
			c := serve(http.StatusOK, `{"is_registered":true,"location_code":""}`)

			outcome, err := c.Lookup(ctx, "0123456789")
			Expect(err).To(BeNil())
			Expect(outcome.LocationCode).To(BeNil())
		})
	})

	DescribeTable("classifies failures",
		func(status int, body string, category registry.ErrorCategory, retryable bool) {
			c := serve(status, body)

			outcome, err := c.Lookup(ctx, "0123456789")
			Expect(outcome).To(BeNil())
			Expect(err).ToNot(BeNil())
			Expect(registry.GetCategory(err)).To(Equal(category))
			Expect(registry.IsRetryable(err)).To(Equal(retryable))
		},
		Entry("no data flag", http.StatusOK, `{"no_data":true}`, registry.ErrorNoData, false),
		Entry("missing registration flag", http.StatusOK, `{"status_label":"?"}`, registry.ErrorNoData, false),
		Entry("empty body", http.StatusOK, ``, registry.ErrorNoData, false),
		Entry("malformed body", http.StatusOK, `{not json`, registry.ErrorNoData, false),
		Entry("not found", http.StatusNotFound, ``, registry.ErrorNoData, false),
		Entry("bad request", http.StatusBadRequest, ``, registry.ErrorTerminalInput, false),
		Entry("unprocessable", http.StatusUnprocessableEntity, ``, registry.ErrorTerminalInput, false),
		Entry("unauthorized", http.StatusUnauthorized, ``, registry.ErrorAuthentication, false),
		Entry("forbidden", http.StatusForbidden, ``, registry.ErrorAuthentication, false),
		Entry("throttled", http.StatusTooManyRequests, ``, registry.ErrorTransient, true),
		Entry("server error", http.StatusInternalServerError, ``, registry.ErrorTransient, true),
		Entry("bad gateway", http.StatusBadGateway, ``, registry.ErrorTransient, true),
		Entry("unexpected status", http.StatusTeapot, ``, registry.ErrorInternal, false),
	)

	Context("transport failures", func() {
		It("classifies a timeout as transient", func() {
			release := make(chan struct{})
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer close(release)

			c := registry.NewHTTPClient(server.URL, "", 50*time.Millisecond)
			_, err := c.Lookup(ctx, "0123456789")
			Expect(err).ToNot(BeNil())
			Expect(registry.GetCategory(err)).To(Equal(registry.ErrorTransient))
			Expect(registry.IsRetryable(err)).To(BeTrue())
		})

		It("classifies an unreachable registry as transient", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			url := server.URL
			server.Close()
			server = nil

			c := registry.NewHTTPClient(url, "", time.Second)
			_, err := c.Lookup(ctx, "0123456789")
			Expect(err).ToNot(BeNil())
			Expect(registry.GetCategory(err)).To(Equal(registry.ErrorTransient))
		})
	})
})
