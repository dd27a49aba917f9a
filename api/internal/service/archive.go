package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mashub/api/internal/domain"
)

// Archiver stores webhooks that ran out of retries.
type Archiver interface {
	Archive(ctx context.Context, letter domain.DeadLetter) error
}

type objectPutter interface {
	PutJSON(ctx context.Context, name string, body []byte) (string, error)
}

type S3Archiver struct {
	store objectPutter
}

// NewS3Archiver takes *s3.Client from infra/s3.
func NewS3Archiver(store objectPutter) *S3Archiver {
	return &S3Archiver{store: store}
}

func DeadLetterName(letter domain.DeadLetter) string {
	return fmt.Sprintf("%s/%s.json", letter.ArchivedAt.UTC().Format("2006/01/02"), letter.Log.ID)
}

func (a *S3Archiver) Archive(ctx context.Context, letter domain.DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return err
	}
	_, err = a.store.PutJSON(ctx, DeadLetterName(letter), body)
	return err
}

type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, domain.DeadLetter) error { return nil }
