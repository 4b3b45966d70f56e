package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePut struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePut) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadReturnsRegionalURL(t *testing.T) {
	put := &fakePut{}
	u := &Uploader{Client: put, Bucket: "exports", Region: "eu-west-1"}

	url, err := u.Upload(context.Background(), strings.NewReader("%PDF-1.3"), "returnForms/abc.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://exports.s3.eu-west-1.amazonaws.com/returnForms/abc.pdf", url)
	assert.Equal(t, "exports", aws.ToString(put.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(put.input.ContentType))
	assert.Equal(t, "%PDF-1.3", put.body)
}

func TestUploadPrefersCloudFront(t *testing.T) {
	u := &Uploader{Client: &fakePut{}, Bucket: "exports", Region: "eu-west-1", CloudFrontDomain: "cdn.example.com"}
	url, err := u.Upload(context.Background(), strings.NewReader("x"), "returnForms/abc.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/returnForms/abc.pdf", url)
}

func TestUploadError(t *testing.T) {
	u := &Uploader{Client: &fakePut{err: errors.New("access denied")}, Bucket: "exports", Region: "eu-west-1"}
	_, err := u.Upload(context.Background(), strings.NewReader("x"), "k", "application/pdf")
	assert.ErrorContains(t, err, "access denied")
}
