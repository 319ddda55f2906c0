// Package normalize validates uploaded artifacts and converts them into a
// single canonical raster image for extraction.
package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/webp"

	"github.com/hsaleh/chequeflow/internal/common"
)

// DefaultMaxArtifactBytes is the artifact size ceiling (10 MiB).
const DefaultMaxArtifactBytes = 10 << 20

// NormalizedImage is the canonical single raster image handed to extraction.
type NormalizedImage struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// Normalizer converts arbitrary uploaded artifacts into normalized images.
type Normalizer struct {
	maxBytes int
}

// New creates a normalizer with the given size ceiling; zero means the default.
func New(maxBytes int) *Normalizer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}
	return &Normalizer{maxBytes: maxBytes}
}

// acceptedTypes maps sniffed content types to their decoders. PDF is handled
// separately because it needs page selection and rasterization.
var acceptedTypes = map[string]func([]byte) (image.Image, error){
	"image/jpeg": func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
	"image/png":  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
	"image/webp": func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) },
}

// Normalize validates the artifact and returns a single decodable PNG image.
// The declared MIME type is advisory; the sniffed type decides acceptance.
func (n *Normalizer) Normalize(artifact []byte, declaredMIME string) (*NormalizedImage, error) {
	if len(artifact) == 0 {
		return nil, common.NewUserError("empty artifact", common.ErrValidation)
	}
	if len(artifact) > n.maxBytes {
		return nil, common.NewUserError(
			fmt.Sprintf("artifact is %d bytes; the ceiling is %d", len(artifact), n.maxBytes),
			common.ErrTooLarge)
	}

	sniffed := http.DetectContentType(artifact)
	if declaredMIME != "" && declaredMIME != sniffed {
		slog.Debug("Declared MIME type disagrees with sniffed type",
			"declared", declaredMIME, "sniffed", sniffed)
	}

	if sniffed == "application/pdf" {
		return n.rasterizePDF(artifact)
	}

	decode, ok := acceptedTypes[sniffed]
	if !ok {
		return nil, common.NewUserError(
			fmt.Sprintf("unsupported artifact type %q", sniffed), common.ErrValidation)
	}

	img, err := decode(artifact)
	if err != nil {
		return nil, common.NewUserError("artifact could not be decoded", common.ErrConversion)
	}

	return encodePNG(img)
}

// rasterizePDF selects the first page of a PDF and renders it to an image.
// The document handle is released on every exit path.
func (n *Normalizer) rasterizePDF(artifact []byte) (*NormalizedImage, error) {
	doc, err := fitz.NewFromMemory(artifact)
	if err != nil {
		return nil, common.NewUserError("document could not be opened", common.ErrConversion)
	}
	defer func() { _ = doc.Close() }()

	if doc.NumPage() == 0 {
		return nil, common.NewUserError("document has no pages", common.ErrConversion)
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, common.NewUserError("first page could not be rasterized", common.ErrConversion)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, common.NewUserError("rasterization produced no usable output", common.ErrConversion)
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) (*NormalizedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.NewUserError("image could not be re-encoded", common.ErrConversion)
	}

	bounds := img.Bounds()
	return &NormalizedImage{
		MIMEType: "image/png",
		Data:     buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
