package ml

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/franckalain/plantcare/internal/models"
)

var _ io.Closer = (*GoogleModel)(nil)

type closingModel struct {
	closed int
	err    error
}

func (m *closingModel) Load(context.Context) error { return nil }

func (m *closingModel) Classify(context.Context, models.UploadReference, *models.PipelineContext) (*models.ClassificationResult, error) {
	return nil, errors.New("not used")
}

func (m *closingModel) Close() error {
	m.closed++
	return m.err
}

func TestClose(t *testing.T) {
	m := &closingModel{}
	if err := Close(m); err != nil {
		t.Fatal(err)
	}
	if m.closed != 1 {
		t.Errorf("closed %d times, want 1", m.closed)
	}

	boom := errors.New("boom")
	if err := Close(&closingModel{err: boom}); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}

func TestClose_WithoutResources(t *testing.T) {
	remote := loadRemote(t, "http://unused.invalid", nil)
	if err := Close(remote); err != nil {
		t.Errorf("remote: %v", err)
	}
	if err := Close(&GoogleModel{}); err != nil {
		t.Errorf("unloaded google model: %v", err)
	}
}
