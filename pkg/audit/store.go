package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LucerneSecurity/commitgate/pkg/format"
	"github.com/LucerneSecurity/commitgate/pkg/httpclient"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Store is an append-only audit sink. There is no read path.
type Store interface {
	Append(ctx context.Context, record *Record) error
}

// ObjectStore writes records to an S3-compatible bucket. The bucket is
// provisioned externally; the gate never creates or lists it.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
}

type ObjectStoreOptions struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	UseSSL    bool
	AccessKey string
	SecretKey string
}

func NewObjectStore(options ObjectStoreOptions) (*ObjectStore, error) {
	client, err := minio.New(options.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(options.AccessKey, options.SecretKey, ""),
		Secure:    options.UseSSL,
		Transport: httpclient.GateTransport(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("creating audit object client: %w", err)
	}

	return &ObjectStore{client: client, bucket: options.Bucket, prefix: options.Prefix}, nil
}

func (s *ObjectStore) Append(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling audit record: %w", err)
	}

	key := s.prefix + record.RunID + ".json"
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("appending audit record %s: %w", key, err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Appended audit record")
	return nil
}

// DirStore writes records to a local directory, one file per run. Used
// for dev setups and CI debugging where no object store is reachable.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, format.DirUserOnly); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Append(_ context.Context, record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling audit record: %w", err)
	}

	path := filepath.Join(s.dir, record.RunID+".json")

	// O_EXCL: a run ID is written exactly once, collisions are a bug
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, format.FileUserReadWrite)
	if err != nil {
		return fmt.Errorf("creating audit record %s: %w", path, err)
	}

	_, writeErr := file.Write(data)
	closeErr := file.Close()
	if writeErr != nil {
		return fmt.Errorf("writing audit record %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing audit record %s: %w", path, closeErr)
	}

	log.Debug().Str("path", path).Msg("Appended audit record")
	return nil
}
