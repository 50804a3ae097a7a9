package extract

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const productPage = `<html>
<head>
<title>Widget | Acme Store</title>
<style>.hidden { display: none; }</style>
<script>var tracking = "analytics";</script>
</head>
<body>
<h1>Acme Widget</h1>
<p>  A very good widget.  </p>
<img src="https://cdn.example.com/widget.jpg" alt="Widget" width="800" height="600" class="product__image" onload="track()">
<div></div>
</body>
</html>`

func TestCleanStripsScriptsAndStyles(t *testing.T) {
	c := NewCleaner(testLogger)

	content, _, err := c.Clean(productPage)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}

	if strings.Contains(content, "tracking") {
		t.Error("script content leaked into cleaned output")
	}
	if strings.Contains(content, "display: none") {
		t.Error("style content leaked into cleaned output")
	}
	if !strings.Contains(content, "Acme Widget") {
		t.Error("heading text missing from cleaned output")
	}
	if !strings.Contains(content, "A very good widget.") {
		t.Error("paragraph text missing or not trimmed")
	}
}

func TestCleanSerializesEssentialImgAttrs(t *testing.T) {
	c := NewCleaner(testLogger)

	content, _, err := c.Clean(productPage)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}

	if !strings.Contains(content, `src="https://cdn.example.com/widget.jpg"`) {
		t.Error("img src not preserved")
	}
	if !strings.Contains(content, `alt="Widget"`) {
		t.Error("img alt not preserved")
	}
	if strings.Contains(content, "onload") {
		t.Error("event handler attribute not dropped")
	}
}

func TestCleanCollectsImages(t *testing.T) {
	c := NewCleaner(testLogger)

	_, images, err := c.Clean(productPage)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}

	img := images[0]
	if img.URL != "https://cdn.example.com/widget.jpg" {
		t.Errorf("unexpected URL: %q", img.URL)
	}
	if img.Width != 800 || img.Height != 600 {
		t.Errorf("dimensions not parsed: %dx%d", img.Width, img.Height)
	}
	if img.CSSClasses != "product__image" {
		t.Errorf("class not captured: %q", img.CSSClasses)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	c := NewCleaner(testLogger)

	content, images, err := c.Clean("")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if content != "" || len(images) != 0 {
		t.Errorf("expected empty output, got %q with %d images", content, len(images))
	}
}
