package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProductURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "https public host", url: "https://www.amazon.com/dp/B0ABC12345"},
		{name: "http public host", url: "http://store.example.com/p/123"},
		{name: "public literal IP", url: "https://93.184.216.34/item"},
		{name: "ftp scheme rejected", url: "ftp://example.com/file", wantErr: "only http and https"},
		{name: "bare path has no scheme", url: "just-a-path", wantErr: "only http and https"},
		{name: "missing hostname", url: "https:///dp/B0ABC12345", wantErr: "no hostname"},
		{name: "loopback IP rejected", url: "http://127.0.0.1:8080/admin", wantErr: "not publicly reachable"},
		{name: "private 10.x rejected", url: "https://10.0.0.5/metadata", wantErr: "not publicly reachable"},
		{name: "private 192.168.x rejected", url: "https://192.168.1.10/", wantErr: "not publicly reachable"},
		{name: "link local rejected", url: "http://169.254.169.254/latest/meta-data", wantErr: "not publicly reachable"},
		{name: "unspecified address rejected", url: "http://0.0.0.0/", wantErr: "not publicly reachable"},
		{name: "localhost rejected", url: "http://localhost:3000/p", wantErr: "not publicly reachable"},
		{name: "localhost subdomain rejected", url: "http://api.localhost/p", wantErr: "not publicly reachable"},
		{name: "internal suffix rejected", url: "https://db.prod.internal/p", wantErr: "not publicly reachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProductURL(tt.url, false)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateProductURLAllowsPrivateHostsWhenConfigured(t *testing.T) {
	assert.NoError(t, ValidateProductURL("http://127.0.0.1:8080/p", true))
	assert.NoError(t, ValidateProductURL("http://localhost:3000/p", true))

	// Scheme and hostname rules still apply.
	assert.Error(t, ValidateProductURL("ftp://127.0.0.1/p", true))
	assert.Error(t, ValidateProductURL("https:///p", true))
}
