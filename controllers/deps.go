package controllers

import (
	"time"

	"github.com/dcode-github/realestate_platform/backend/cache"
	"github.com/dcode-github/realestate_platform/backend/config"
	"github.com/dcode-github/realestate_platform/backend/mailer"
	"github.com/dcode-github/realestate_platform/backend/storage"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.uber.org/zap"
)

// Deps is everything a handler needs, built once in main.
type Deps struct {
	Store   store.Store
	Cache   *cache.ListCache
	Mailer  mailer.Sender
	Uploads storage.Backend
	Tokens  *utils.TokenIssuer
	Cfg     *config.Config
	Log     *zap.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC().Truncate(time.Millisecond)
	}
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (d *Deps) coll(name string) store.Collection {
	return d.Store.Collection(name)
}
