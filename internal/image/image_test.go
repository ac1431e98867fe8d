package image

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", makePNG(t, 4, 4), FormatPNG},
		{"jpeg", makeJPEG(t, 4, 4), FormatJPEG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := DetectFormat(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != tt.want {
				t.Errorf("format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	_, _, err := DetectFormat(bytes.NewReader([]byte("definitely not an image")))
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestThumbnailDownscales(t *testing.T) {
	data := makePNG(t, 800, 400)

	out, format, err := Thumbnail(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if format != FormatPNG {
		t.Errorf("format = %q, want png", format)
	}

	w, h, err := GetDimensions(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if w != 200 || h != 100 {
		t.Errorf("dimensions = %dx%d, want 200x100 (aspect preserved)", w, h)
	}
}

func TestResizeKeepsSmallImages(t *testing.T) {
	data := makeJPEG(t, 100, 80)

	out, _, err := Resize(bytes.NewReader(data), 500, 500)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	w, h, err := GetDimensions(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 || h != 80 {
		t.Errorf("dimensions = %dx%d, want unchanged 100x80", w, h)
	}
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		origW, origH, maxW, maxH int
		wantW, wantH             int
	}{
		{1000, 500, 200, 200, 200, 100},
		{500, 1000, 200, 200, 100, 200},
		{100, 100, 200, 200, 100, 100},
		{1, 10000, 200, 200, 1, 200},
	}
	for _, tt := range tests {
		w, h := fitDimensions(tt.origW, tt.origH, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitDimensions(%d, %d, %d, %d) = %d, %d; want %d, %d",
				tt.origW, tt.origH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}
