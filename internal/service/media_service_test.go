package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	config "github.com/maheshrc27/postsphere/configs"
	"github.com/maheshrc27/postsphere/internal/models"
)

type memAssets struct {
	rows map[int64]*models.MediaAsset
}

func (m *memAssets) Create(_ context.Context, _ *sql.Tx, ma *models.MediaAsset) (int64, error) {
	cp := *ma
	cp.ID = int64(len(m.rows) + 1)
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memAssets) GetByID(_ context.Context, id int64) (*models.MediaAsset, error) {
	return m.rows[id], nil
}

func (m *memAssets) ListByUserID(_ context.Context, userID int64, _, _ int) ([]*models.MediaAsset, error) {
	var out []*models.MediaAsset
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssets) Remove(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestUploadMedia(t *testing.T) {
	storage := &stubStorage{}
	assets := &memAssets{rows: map[int64]*models.MediaAsset{}}
	svc := NewMediaService(storage, config.R2{BucketName: "media", PublicURL: "https://pub.example/"}, assets)

	asset, err := svc.Upload(context.Background(), 7, pngHeader)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.FileType != "image/png" || asset.Kind() != models.MediaKindImage {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if !strings.HasPrefix(asset.FileURL, "https://pub.example/") || !strings.HasSuffix(asset.FileURL, ".png") {
		t.Fatalf("unexpected url %q", asset.FileURL)
	}
	if len(storage.puts) != 1 || aws.ToString(storage.puts[0].Bucket) != "media" || aws.ToString(storage.puts[0].ContentType) != "image/png" {
		t.Fatalf("unexpected storage calls %+v", storage.puts)
	}

	if err := svc.Remove(context.Background(), 8, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
	if err := svc.Remove(context.Background(), 7, asset.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(storage.deletes) != 1 || aws.ToString(storage.deletes[0].Key) != asset.FileName {
		t.Fatalf("unexpected deletes %+v", storage.deletes)
	}
}

func TestUploadRejectsUnknownTypes(t *testing.T) {
	storage := &stubStorage{}
	svc := NewMediaService(storage, config.R2{}, &memAssets{rows: map[int64]*models.MediaAsset{}})

	for name, data := range map[string][]byte{
		"empty": nil,
		"text":  []byte("just some text, not an image"),
	} {
		if _, err := svc.Upload(context.Background(), 1, data); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
	if len(storage.puts) != 0 {
		t.Fatal("rejected files must not be stored")
	}
}
