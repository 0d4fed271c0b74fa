package protocol

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type nopHandler struct{ name string }

func (h *nopHandler) Open(string, Mode) error           { return nil }
func (h *nopHandler) Read([]byte) (int, error)          { return 0, io.EOF }
func (h *nopHandler) Write(b []byte) (int, error)       { return len(b), nil }
func (h *nopHandler) Seek(int64, Whence) (int64, error) { return 0, ErrUnsupported }
func (h *nopHandler) Close() error                      { return nil }
func (h *nopHandler) IsStreamed(string, Mode) bool      { return true }

func fixed(h Handler) Factory {
	return FactoryFunc(func(string, string, Mode) Handler { return h })
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	want := &nopHandler{name: "a"}

	prev, err := r.RegisterFactory("test", fixed(want))
	if err != nil {
		t.Fatalf("RegisterFactory failed: %v", err)
	}
	if prev != nil {
		t.Error("first registration should not replace anything")
	}

	got, err := r.Resolve("test:succeed", ModeRead)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("Resolve returned %v, want %v", got, want)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	first := &nopHandler{name: "first"}
	second := &nopHandler{name: "second"}

	if _, err := r.RegisterFactory("x", fixed(first)); err != nil {
		t.Fatal(err)
	}
	prev, err := r.RegisterFactory("x", fixed(second))
	if err != nil {
		t.Fatal(err)
	}
	if prev == nil {
		t.Error("second registration should return the replaced factory")
	}

	got, err := r.Resolve("x:y", ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	if got.(*nopHandler).name != "second" {
		t.Errorf("last registration should win, got %q", got.(*nopHandler).name)
	}
}

func TestRegisterInvalid(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))

	if _, err := r.RegisterFactory("", fixed(&nopHandler{})); !errors.Is(err, ErrInvalidScheme) {
		t.Errorf("empty scheme: got %v, want ErrInvalidScheme", err)
	}
	if _, err := r.RegisterFactory("a:b", fixed(&nopHandler{})); !errors.Is(err, ErrInvalidScheme) {
		t.Errorf("scheme with colon: got %v, want ErrInvalidScheme", err)
	}
	if _, err := r.RegisterFactory("ok", nil); !errors.Is(err, ErrUsage) {
		t.Errorf("nil factory: got %v, want ErrUsage", err)
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	if _, err := r.RegisterFactory("gone", fixed(&nopHandler{})); err != nil {
		t.Fatal(err)
	}

	if f, ok := r.Unregister("gone"); !ok || f == nil {
		t.Errorf("Unregister = %v, %v; want the factory", f, ok)
	}
	if _, err := r.Resolve("gone:x", ModeRead); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Resolve after Unregister = %v, want ErrNoHandler", err)
	}
	if _, ok := r.Unregister("gone"); ok {
		t.Error("second Unregister should report nothing removed")
	}
	if n := len(r.Schemes()); n != 0 {
		t.Errorf("Schemes has %d entries, want 0", n)
	}
}

func TestResolveUnregistered(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))

	if _, err := r.Resolve("missing:thing", ModeRead); !errors.Is(err, ErrNoHandler) {
		t.Errorf("got %v, want ErrNoHandler", err)
	}
	if _, err := r.Resolve("noscheme", ModeRead); !errors.Is(err, ErrNoHandler) {
		t.Errorf("got %v, want ErrNoHandler", err)
	}
}

func TestResolveFactoryDeclines(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	_, _ = r.RegisterFactory("picky", FactoryFunc(func(_, url string, _ Mode) Handler {
		if strings.HasSuffix(url, "yes") {
			return &nopHandler{}
		}
		return nil
	}))

	if _, err := r.Resolve("picky:yes", ModeRead); err != nil {
		t.Errorf("accepted url failed: %v", err)
	}
	if _, err := r.Resolve("picky:no", ModeRead); !errors.Is(err, ErrNoHandler) {
		t.Errorf("declined url: got %v, want ErrNoHandler", err)
	}
}

func TestFactoryReceivesRawURL(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	var gotScheme, gotURL string
	var gotMode Mode
	_, _ = r.RegisterFactory("http", FactoryFunc(func(scheme, url string, mode Mode) Handler {
		gotScheme, gotURL, gotMode = scheme, url, mode
		return &nopHandler{}
	}))

	if _, err := r.Resolve("http://www.humble.io/video", ModeWrite); err != nil {
		t.Fatal(err)
	}
	if gotScheme != "http" || gotURL != "http://www.humble.io/video" || gotMode != ModeWrite {
		t.Errorf("factory got (%q, %q, %v)", gotScheme, gotURL, gotMode)
	}
}

func TestSchemes(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	for _, s := range []string{"zeta", "alpha", "mid"} {
		_, _ = r.RegisterFactory(s, fixed(&nopHandler{}))
	}
	got := r.Schemes()
	want := []string{"alpha", "mid", "zeta"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Schemes() = %v, want %v", got, want)
	}
}

func TestConcurrentRegisterAndResolve(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	_, _ = r.RegisterFactory("shared", fixed(&nopHandler{}))

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			_, _ = r.RegisterFactory(fmt.Sprintf("s%d", id), fixed(&nopHandler{}))
			_, _ = r.RegisterFactory("shared", fixed(&nopHandler{}))
		}(i)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve("shared:x", ModeRead); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(r.Schemes()); n != goroutines+1 {
		t.Errorf("registered %d schemes, want %d", n, goroutines+1)
	}
}

func TestUniqueScheme(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := UniqueScheme("mem")
		if !strings.HasPrefix(s, "mem") {
			t.Errorf("UniqueScheme(%q) = %q, missing prefix", "mem", s)
		}
		if seen[s] {
			t.Errorf("UniqueScheme returned %q twice", s)
		}
		seen[s] = true
	}
}

func TestModeAndWhence(t *testing.T) {
	if !ModeRead.CanRead() || ModeRead.CanWrite() {
		t.Error("ModeRead permissions wrong")
	}
	if ModeWrite.CanRead() || !ModeWrite.CanWrite() {
		t.Error("ModeWrite permissions wrong")
	}
	if !ModeReadWrite.CanRead() || !ModeReadWrite.CanWrite() {
		t.Error("ModeReadWrite permissions wrong")
	}
	if Mode(0).Valid() || Mode(4).CanRead() {
		t.Error("undefined modes should be invalid")
	}
	if !SeekEnd.Valid() || SeekSize.Valid() {
		t.Error("Whence validity wrong")
	}
}
