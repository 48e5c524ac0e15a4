package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testWindow(span time.Duration, max int) (*Window, *time.Time) {
	now := time.Now()

	w := &Window{
		span: span,
		max:  max,
		hits: make(map[string][]time.Time),
	}
	w.now = func() time.Time { return now }

	return w, &now
}

func TestWindowRejectsSixthRequest(t *testing.T) {
	w, _ := testWindow(time.Minute, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, w.Allow("1.2.3.4"), "request %d should pass", i+1)
	}

	assert.False(t, w.Allow("1.2.3.4"))
}

func TestWindowAdmitsAfterWindowElapses(t *testing.T) {
	w, now := testWindow(time.Minute, 5)

	for i := 0; i < 6; i++ {
		w.Allow("1.2.3.4")
	}

	*now = now.Add(61 * time.Second)

	assert.True(t, w.Allow("1.2.3.4"))
}

func TestWindowIsolatesIPs(t *testing.T) {
	w, _ := testWindow(time.Minute, 5)

	for i := 0; i < 6; i++ {
		w.Allow("1.2.3.4")
	}

	assert.False(t, w.Allow("1.2.3.4"))
	assert.True(t, w.Allow("5.6.7.8"))
}

func TestWindowPartialSlide(t *testing.T) {
	w, now := testWindow(time.Minute, 5)

	for i := 0; i < 5; i++ {
		w.Allow("1.2.3.4")
		*now = now.Add(10 * time.Second)
	}

	// 50s in: the first hit is 50s old, still inside the window
	assert.False(t, w.Allow("1.2.3.4"))

	// 70s in: the first two hits have aged out
	*now = now.Add(20 * time.Second)
	assert.True(t, w.Allow("1.2.3.4"))
}

func TestWindowReset(t *testing.T) {
	w, _ := testWindow(time.Minute, 5)

	for i := 0; i < 6; i++ {
		w.Allow("1.2.3.4")
	}

	w.Reset("1.2.3.4")

	assert.True(t, w.Allow("1.2.3.4"))
}
