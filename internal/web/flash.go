package web

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const flashSessionName = "flash"

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// Flasher stores flashes in a signed cookie until the next page pops them.
type Flasher struct {
	store sessions.Store
}

func NewFlasher(secret []byte) *Flasher {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Flasher{store: store}
}

func (f *Flasher) Add(c *gin.Context, category, message string) {
	// a tampered or stale cookie still yields a fresh, usable session
	sess, _ := f.store.Get(c.Request, flashSessionName)
	sess.AddFlash(Flash{Category: category, Message: message})
	_ = sess.Save(c.Request, c.Writer)
}

// Pop returns and clears pending flashes. It must run before the body is written.
func (f *Flasher) Pop(c *gin.Context) []Flash {
	sess, _ := f.store.Get(c.Request, flashSessionName)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(c.Request, c.Writer)
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if fl, ok := v.(Flash); ok {
			out = append(out, fl)
		}
	}
	return out
}
