// Package editor holds the interior editor form state and the submit flow
// that turns a prompt and an optional room photo into a generated design.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Mode selects between generating a new design and editing an uploaded photo.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Canned prompts loaded whenever the mode changes.
const (
	DefaultCreatePrompt = "A bright modern living room with oak floors, a linen sofa, large windows and plenty of plants"
	DefaultEditPrompt   = "Redesign this room in Scandinavian style, keep the layout, walls and windows"
)

// maxUploadSize caps the photo read from disk.
const maxUploadSize = 32 << 20

// ParseMode converts a flag or config value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCreate:
		return ModeCreate, nil
	case ModeEdit:
		return ModeEdit, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeCreate, ModeEdit)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeEdit {
		return ModeCreate
	}
	return ModeEdit
}

// DefaultPrompt returns the canned prompt for a mode.
func DefaultPrompt(m Mode) string {
	if m == ModeEdit {
		return DefaultEditPrompt
	}
	return DefaultCreatePrompt
}

// File is a user-chosen image held in memory until it is uploaded.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

// Size returns the file length in bytes.
func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// LoadFile reads an image from disk and sniffs its MIME type from content.
func LoadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open image: %s is a directory", path)
	}
	if info.Size() > maxUploadSize {
		return nil, fmt.Errorf("open image: %s is larger than %d MB", path, maxUploadSize>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return &File{
		Name:        filepath.Base(path),
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
	}, nil
}

// Form is the complete state of one editor. Values returned by Session are
// copies and safe to keep; the File pointer is shared but never mutated.
type Form struct {
	Mode     Mode
	Prompt   string
	File     *File
	ImageURL string
	Progress float64
	Error    string
	Loading  bool

	// Version increases on every change so observers can drop stale copies.
	Version uint64
}

// NewForm returns the state of a freshly mounted editor.
func NewForm() Form {
	return Form{
		Mode:   ModeCreate,
		Prompt: DefaultPrompt(ModeCreate),
	}
}

// SetMode switches the mode and overwrites the prompt with its default.
// The selected file is kept.
func (f *Form) SetMode(m Mode) {
	f.Mode = m
	f.Prompt = DefaultPrompt(m)
}

// SetPrompt replaces the prompt text and clears any error.
func (f *Form) SetPrompt(p string) {
	f.Prompt = p
	f.Error = ""
}

// SelectFile replaces the selected file and clears any error.
func (f *Form) SelectFile(file *File) {
	f.File = file
	f.Error = ""
}

// ClearFile drops the selected file.
func (f *Form) ClearFile() {
	f.File = nil
}

// Validate checks the form in submit order.
func (f *Form) Validate() error {
	if strings.TrimSpace(f.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if f.Mode == ModeEdit && f.File == nil {
		return ErrMissingImage
	}
	return nil
}

// begin moves the form into the submitting state.
func (f *Form) begin() {
	f.Error = ""
	f.ImageURL = ""
	f.Loading = true
	f.Progress = 0
}

// advance adds delta to the cosmetic progress without passing limit.
func (f *Form) advance(delta, limit float64) {
	if f.Progress >= limit {
		return
	}
	f.Progress += delta
	if f.Progress > limit {
		f.Progress = limit
	}
}

func (f *Form) succeed(imageURL string) {
	f.Progress = 100
	f.ImageURL = imageURL
}

func (f *Form) fail(message string) {
	f.Error = message
}

// answered marks the request as completed even though it produced no image.
func (f *Form) answered() {
	f.Progress = 100
}
