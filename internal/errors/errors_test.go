package errors

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "render error",
			code:    "E101",
			wantMsg: "Template missing placeholder",
			wantCat: CategoryRender,
		},
		{
			name:    "config error",
			code:    "E121",
			wantMsg: "Invalid port",
			wantCat: CategoryConfig,
		},
		{
			name:    "request error",
			code:    "E201",
			wantMsg: "Request body too large",
			wantCat: CategoryRequest,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	cause := fmt.Errorf("open index.html: no such file")
	err := New("E100").Wrap(cause)

	want := "E100: Template read failed: open index.html: no such file"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, cause) {
		t.Error("Is(err, cause) = false, want true")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E103") != nil {
		t.Error("FromError(nil) should return nil")
	}

	coded := New("E101")
	wrapped := fmt.Errorf("loading: %w", coded)
	if got := FromError(wrapped, "E103"); got != coded {
		t.Errorf("FromError should unwrap to the existing *Error, got %v", got)
	}

	plain := fmt.Errorf("boom")
	got := FromError(plain, "E103")
	if got.Code != "E103" {
		t.Errorf("Code = %q, want E103", got.Code)
	}
	if got.Unwrap() != plain {
		t.Error("FromError should wrap the plain error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New("E121"))
	if !HasCode(err, "E121") {
		t.Error("HasCode(E121) = false, want true")
	}
	if HasCode(err, "E122") {
		t.Error("HasCode(E122) = true, want false")
	}
	if HasCode(fmt.Errorf("plain"), "E121") {
		t.Error("HasCode on plain error should be false")
	}
}

func TestWithLocationReadsContext(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.gohtml")
	content := "line1\nline2\nline3\nline4\nline5\nline6\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E103").WithLocation(file, 3, 2)
	if err.Location.String() != file+":3:2" {
		t.Errorf("Location = %q", err.Location.String())
	}
	want := []string{"line1", "line2", "line3", "line4", "line5"}
	if strings.Join(err.Context, ",") != strings.Join(want, ",") {
		t.Errorf("Context = %v, want %v", err.Context, want)
	}
}

func TestWithLocationMissingFile(t *testing.T) {
	err := New("E103").WithLocation("/does/not/exist.gohtml", 10, 0)
	if err.Context != nil {
		t.Errorf("Context = %v, want nil", err.Context)
	}
	if err.Location.String() != "/does/not/exist.gohtml:10" {
		t.Errorf("Location = %q", err.Location.String())
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	dir := t.TempDir()
	file := filepath.Join(dir, "about.gohtml")
	if err := os.WriteFile(file, []byte("<section>\n<h1>About</h1>\n<p>{{ .X }}</p>\n</section>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E103").
		WithLocation(file, 3, 4).
		WithSuggestion("Check the template data").
		Wrap(fmt.Errorf("can't evaluate field X"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E103: Page render failed",
		"can't evaluate field X",
		file + ":3:4",
		"→    3 │ <p>{{ .X }}</p>",
		"   ^",
		"Hint: Check the template data",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E101")
	err.Location = &Location{File: "index.html", Line: 1}
	if got := err.FormatCompact(); got != "index.html:1: E101: Template missing placeholder" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func panicker() {
	panic("kaboom")
}

func TestFromPanicCapturesStack(t *testing.T) {
	var got *Error
	func() {
		defer func() {
			if v := recover(); v != nil {
				got = FromPanic(v)
			}
		}()
		panicker()
	}()

	if got == nil {
		t.Fatal("expected recovered error")
	}
	if got.Code != "E202" {
		t.Errorf("Code = %q, want E202", got.Code)
	}
	if !strings.Contains(got.Error(), "kaboom") {
		t.Errorf("Error() = %q, want panic value", got.Error())
	}

	found := false
	for _, f := range got.Stack {
		if strings.HasSuffix(f.Function, ".panicker") {
			found = true
		}
		if strings.HasPrefix(f.Function, "runtime.") {
			t.Errorf("runtime frame leaked into stack: %s", f)
		}
	}
	if !found {
		t.Errorf("stack does not include panicking function: %v", got.Stack)
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, fmt.Errorf("wrapped: %w", New("E121")))
	if !strings.Contains(buf.String(), "ERROR E121: Invalid port") {
		t.Errorf("Print() = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, fmt.Errorf("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Print() = %q", buf.String())
	}
}
