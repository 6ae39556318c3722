package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"photoreq-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "folder/1_front.jpg", want: "folder/1_front.jpg"},
		{name: "simple prefix", prefix: "root", key: "folder/1_front.jpg", want: "root/folder/1_front.jpg"},
		{name: "prefix trailing slash", prefix: "root/", key: "folder/1_front.jpg", want: "root/folder/1_front.jpg"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/folder/1_front.jpg", want: "root/folder/1_front.jpg"},
		{name: "nested prefix", prefix: "root/sub", key: "folder/1_front.jpg", want: "root/sub/folder/1_front.jpg"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	put  *s3.PutObjectInput
	body string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	b, err := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, err
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if aws.ToString(in.Key) != "photos/folder/a.jpg" {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestPutUsesPrefixAndEncryption(t *testing.T) {
	fake := &fakeS3{}
	s := newWithClient(fake, "bucket", "/photos/", "kms-key")

	n, err := s.Put(context.Background(), "folder/a.jpg", "image/jpeg", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 4 || fake.body != "data" {
		t.Fatalf("unexpected upload size=%d body=%q", n, fake.body)
	}
	if aws.ToString(fake.put.Key) != "photos/folder/a.jpg" || aws.ToString(fake.put.ContentType) != "image/jpeg" {
		t.Fatalf("unexpected put input %+v", fake.put)
	}
	if fake.put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(fake.put.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected KMS encryption")
	}

	rc, err := s.Open(context.Background(), "folder/a.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if got, _ := io.ReadAll(rc); string(got) != "data" {
		t.Fatalf("Open returned %q", got)
	}

	if loc := s.Location("folder"); loc != "s3://bucket/photos/folder" {
		t.Fatalf("Location = %q", loc)
	}
	if _, err := s.Put(context.Background(), "../x", "", strings.NewReader("")); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestPutDefaultsToAES256(t *testing.T) {
	fake := &fakeS3{}
	s := newWithClient(fake, "bucket", "", "")
	if _, err := s.Put(context.Background(), "a.jpg", "", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if fake.put.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 encryption")
	}
	if aws.ToString(fake.put.ContentType) != "application/octet-stream" {
		t.Fatalf("expected default content type")
	}
}
