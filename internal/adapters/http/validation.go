package httpadapter

import (
	_ "embed"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPISpec []byte

func loadOpenAPIRouter() (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

// requestValidationMiddleware checks JSON bodies and query parameters against
// the embedded contract. Routes missing from the contract pass through.
func requestValidationMiddleware(next http.Handler, router routers.Router) http.Handler {
	if router == nil {
		return next
	}
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isJSONRequest(r) && r.URL.RawQuery == "" {
			next.ServeHTTP(w, r)
			return
		}
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if !isJSONRequest(r) {
			input.Options = &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				ExcludeRequestBody: true,
			}
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			slog.Warn("request_validation_failed",
				"request_id", requestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"error", err.Error(),
			)
			writeErrorMessage(w, http.StatusBadRequest, "invalid_input", validationMessage(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func validationMessage(err error) string {
	switch e := err.(type) {
	case *openapi3filter.RequestError:
		if e.Parameter != nil {
			return fmt.Sprintf("invalid parameter %q: %s", e.Parameter.Name, e.Reason)
		}
		if e.Err != nil {
			return "invalid request body: " + e.Err.Error()
		}
		return "invalid request: " + e.Reason
	default:
		return "invalid request: " + err.Error()
	}
}
