package exposure

import (
	"errors"
	"testing"
)

func TestSinkError(t *testing.T) {
	t.Run("with event id", func(t *testing.T) {
		cause := errors.New("buffer full")
		err := NewSinkError("ev-1", cause)

		expected := "sink error [event_id=ev-1]: buffer full"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
	})

	t.Run("without event id", func(t *testing.T) {
		err := NewSinkError("", errors.New("sink closed"))

		expected := "sink error: sink closed"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("sqlite", "store", cause)

	expected := "storage error [backend=sqlite, operation=store]: disk full"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("expected unwrapped error to be %v, got %v", cause, errors.Unwrap(err))
	}
}

func TestQueryError(t *testing.T) {
	cause := errors.New("invalid sort order")
	query := &Query{SortOrder: "sideways"}
	err := NewQueryError(query, cause)

	expected := "query error: invalid sort order"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if err.Query != query {
		t.Error("expected error to carry the failing query")
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to wrap cause")
	}
}

func TestRetentionError(t *testing.T) {
	cause := errors.New("delete failed")
	err := NewRetentionError(90, cause)

	expected := "retention error [retention_days=90]: delete failed"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to wrap cause")
	}
}

func TestExportError(t *testing.T) {
	cause := errors.New("write failed")
	err := NewExportError("jsonl", 42, cause)

	expected := "export error [format=jsonl, record_count=42]: write failed"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("expected unwrapped error to be %v, got %v", cause, errors.Unwrap(err))
	}
}
