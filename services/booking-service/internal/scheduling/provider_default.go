//go:build !protogen

package scheduling

// NewProvider returns the HTTP-backed provider. The gRPC variant is only
// compiled when generated protobuf stubs are present.
func NewProvider(httpBaseURL, _ string) (Provider, error) {
	if httpBaseURL == "" {
		return nil, nil
	}
	return NewHTTPProvider(httpBaseURL), nil
}
