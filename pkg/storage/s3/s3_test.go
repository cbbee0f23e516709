package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yi-nology/docvault/pkg/storage"
)

type fakeClient struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func stage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("payload"), 0o600))
	return p
}

func TestUploadWithEnvCredentials(t *testing.T) {
	env := map[string]string{"AWS_ACCESS_KEY_ID": "AKIA", "AWS_SECRET_ACCESS_KEY": "secret"}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	client := &fakeClient{}
	var seen Options
	factory := func(_ context.Context, o Options) (Client, error) {
		seen = o
		return client, nil
	}

	p, err := New(storage.Options{
		"bucket":         "docs",
		"region":         "us-east-1",
		"endpoint_url":   "https://s3.amazonaws.com",
		"access_key_env": "AWS_ACCESS_KEY_ID",
		"secret_key_env": "AWS_SECRET_ACCESS_KEY",
		"object_prefix":  "/tenant/",
		"content_type":   "text/plain",
	}, lookup, factory)
	require.NoError(t, err)

	locator, err := p.Upload(context.Background(), stage(t), "hub/doc-1/a.txt")
	require.NoError(t, err)

	assert.Equal(t, "s3://docs/tenant/hub/doc-1/a.txt", locator)
	assert.Equal(t, "AKIA", seen.AccessKey)
	assert.Equal(t, "secret", seen.SecretKey)
	assert.Equal(t, "https://s3.amazonaws.com", seen.EndpointURL)
	assert.Equal(t, "docs", *client.input.Bucket)
	assert.Equal(t, "tenant/hub/doc-1/a.txt", *client.input.Key)
	assert.Equal(t, "text/plain", *client.input.ContentType)
	assert.Equal(t, int64(7), *client.input.ContentLength)
	assert.Equal(t, "payload", string(client.body))
}

func TestUploadWithoutPrefixOrContentType(t *testing.T) {
	client := &fakeClient{}
	p, _ := New(storage.Options{"bucket": "docs"}, nil, func(context.Context, Options) (Client, error) { return client, nil })

	locator, err := p.Upload(context.Background(), stage(t), "hub/1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/hub/1/a.txt", locator)
	assert.Nil(t, client.input.ContentType)
}

func TestUploadMissingBucket(t *testing.T) {
	called := false
	p, _ := New(storage.Options{"region": "eu-west-1"}, nil, func(context.Context, Options) (Client, error) {
		called = true
		return &fakeClient{}, nil
	})

	_, err := p.Upload(context.Background(), stage(t), "hub/1/a.txt")
	var cfgErr *storage.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "bucket", cfgErr.Field)
	assert.False(t, storage.IsRetryable(err))
	assert.False(t, called, "client must not be built for an invalid config")
}

func TestUploadTransportFailureIsRetryable(t *testing.T) {
	client := &fakeClient{err: errors.New("connection reset")}
	p, _ := New(storage.Options{"bucket": "docs"}, nil, func(context.Context, Options) (Client, error) { return client, nil })

	_, err := p.Upload(context.Background(), stage(t), "hub/1/a.txt")
	require.Error(t, err)
	assert.True(t, storage.IsRetryable(err))
	assert.Contains(t, err.Error(), "connection reset")
}

type fakePresigner struct {
	input   *s3.GetObjectInput
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:          "https://docs.s3.amazonaws.com/" + *params.Key + "?X-Amz-Signature=abc",
		Method:       http.MethodGet,
		SignedHeader: http.Header{},
	}, nil
}

func TestPresignGet(t *testing.T) {
	presigner := &fakePresigner{}
	url, err := PresignGet(context.Background(), presigner, "docs", "hub/1/a.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.s3.amazonaws.com/hub/1/a.txt?X-Amz-Signature=abc", url)
	assert.Equal(t, DefaultPresignExpiry, presigner.expires)
	assert.Equal(t, "docs", *presigner.input.Bucket)
}

func TestParseOptionsLiteralBeatsEnv(t *testing.T) {
	lookup := func(string) (string, bool) { return "env-value", true }
	o := ParseOptions(storage.Options{"access_key": "literal", "access_key_env": "X", "path_style": true}, lookup)
	assert.Equal(t, "literal", o.AccessKey)
	assert.True(t, o.PathStyle)
}
