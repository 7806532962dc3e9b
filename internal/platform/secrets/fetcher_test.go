package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sendgridResource = "projects/santis/secrets/sendgrid-api-key/versions/latest"

// secretStore fakes Secret Manager keyed by full resource name.
type secretStore struct {
	mu     sync.Mutex
	values map[string]string
	fail   map[string]error
	hits   map[string]int
}

func newSecretStore() *secretStore {
	return &secretStore{values: map[string]string{}, fail: map[string]error{}, hits: map[string]int{}}
}

func (s *secretStore) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[req.GetName()]++
	if err := s.fail[req.GetName()]; err != nil {
		return nil, err
	}
	value, ok := s.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)}}, nil
}

func (s *secretStore) Close() error { return nil }

func (s *secretStore) calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

func writeFallback(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestFetcherResolvesRemoteOnceThenCaches(t *testing.T) {
	ctx := context.Background()
	store := newSecretStore()
	store.values[sendgridResource] = "SG.remote"

	f, err := NewFetcher(ctx, WithSecretManagerClient(store), WithProject("santis"))
	require.NoError(t, err)
	defer f.Close()

	for range 3 {
		got, err := f.Resolve(ctx, "secret://sendgrid-api-key")
		require.NoError(t, err)
		assert.Equal(t, "SG.remote", got)
	}
	assert.Equal(t, 1, store.calls(sendgridResource))
}

func TestFetcherPinnedVersionAndProject(t *testing.T) {
	ctx := context.Background()
	store := newSecretStore()
	store.values["projects/santis-prod/secrets/firebase-web-api-key/versions/4"] = "AIza-pinned"

	f, err := NewFetcher(ctx, WithSecretManagerClient(store), WithProject("santis"))
	require.NoError(t, err)

	got, err := f.ResolveSecret(ctx, "sm://firebase-web-api-key?version=4&project=santis-prod")
	require.NoError(t, err)
	assert.Equal(t, "AIza-pinned", got)
}

func TestFetcherFallback(t *testing.T) {
	cases := []struct {
		name      string
		remoteErr error
		fallback  string
		want      string
		wantCode  codes.Code
	}{
		{
			name:      "permission denied uses local file",
			remoteErr: status.Error(codes.PermissionDenied, "denied"),
			fallback:  "SENDGRID_API_KEY=SG.local\n",
			want:      "SG.local",
		},
		{
			name:      "unavailable uses local file",
			remoteErr: status.Error(codes.Unavailable, "down"),
			fallback:  "SENDGRID_API_KEY=SG.local\n",
			want:      "SG.local",
		},
		{
			name:     "not found is not masked by the local file",
			fallback: "SENDGRID_API_KEY=SG.local\n",
			wantCode: codes.NotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := newSecretStore()
			if tc.remoteErr != nil {
				store.fail[sendgridResource] = tc.remoteErr
			}
			f, err := NewFetcher(ctx,
				WithSecretManagerClient(store),
				WithProject("santis"),
				WithFallbackFile(writeFallback(t, tc.fallback)),
			)
			require.NoError(t, err)

			got, err := f.Resolve(ctx, "secret://sendgrid-api-key")
			if tc.wantCode != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, status.Code(errors.Unwrap(err)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetcherWithoutCredentialsReadsLocalFile(t *testing.T) {
	original := secretManagerClientFactory
	secretManagerClientFactory = func(context.Context, ...option.ClientOption) (*secretmanager.Client, error) {
		return nil, errors.New("could not find default credentials")
	}
	t.Cleanup(func() { secretManagerClientFactory = original })

	f, err := NewFetcher(context.Background(),
		WithProject("santis"),
		WithFallbackFile(writeFallback(t, "REDIS_PASSWORD=local-redis\n")),
	)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Resolve(context.Background(), "secret://redis-password")
	require.NoError(t, err)
	assert.Equal(t, "local-redis", got)

	_, err = f.Resolve(context.Background(), "secret://mail-notify-address")
	assert.Error(t, err, "secrets missing from the local file still fail")
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		ref     string
		want    reference
		wantErr bool
	}{
		{ref: "secret://sendgrid-api-key", want: reference{Name: "sendgrid-api-key", Version: "latest"}},
		{ref: "sm://redis-password?version=2", want: reference{Name: "redis-password", Version: "2"}},
		{ref: " secret://web-key?project=other ", want: reference{Name: "web-key", Version: "latest", Project: "other"}},
		{ref: "", wantErr: true},
		{ref: "https://example.com", wantErr: true},
		{ref: "secret://", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.ref, func(t *testing.T) {
			got, err := parseReference(tc.ref)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFallbackKey(t *testing.T) {
	assert.Equal(t, "SENDGRID_API_KEY", fallbackKey("sendgrid-api-key"))
	assert.Equal(t, "REDIS_PASSWORD", fallbackKey("redis_password"))
}
