package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/sirupsen/logrus"
)

//SetupStep identifies where in the guided position-creation flow a session is.
type SetupStep int

const (
	StepReviewerRoles SetupStep = iota
	StepChannels
	StepResubmitPolicy
)

func (s SetupStep) String() string {
	switch s {
	case StepReviewerRoles:
		return "reviewer roles"
	case StepChannels:
		return "channels"
	case StepResubmitPolicy:
		return "resubmission policy"
	default:
		return "unknown"
	}
}

//SetupSession holds the partially built position while an admin works
//through the creation wizard. Draft only becomes a database record once the
//final resubmission-policy button lands.
type SetupSession struct {
	Key       string
	GuildID   string
	ChannelID string
	UserID    string
	Step      SetupStep
	Draft     appmodels.Position
	StartedAt time.Time
	Touched   time.Time
}

const setupSessionTTL = 30 * time.Minute
const sessionSweepInterval = 5 * time.Minute

//SetupCache stores in-flight setup sessions keyed by session key, expiring
//entries that have not been touched within the TTL.
type SetupCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*SetupSession
	stop     chan struct{}
}

func NewSetupCache(ttl time.Duration) *SetupCache {
	c := &SetupCache{
		ttl:      ttl,
		sessions: make(map[string]*SetupSession),
		stop:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

//Put stores or refreshes a session.
func (c *SetupCache) Put(sess *SetupSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess.Touched = time.Now()
	c.sessions[sess.Key] = sess
}

//Get returns the session for a key, or nil if it does not exist or has expired.
func (c *SetupCache) Get(key string) *SetupSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[key]
	if !ok {
		return nil
	}
	if time.Since(sess.Touched) > c.ttl {
		delete(c.sessions, key)
		return nil
	}
	return sess
}

//Delete removes a session.
func (c *SetupCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, key)
}

//Stop terminates the background sweeper.
func (c *SetupCache) Stop() {
	close(c.stop)
}

func (c *SetupCache) sweep() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, sess := range c.sessions {
				if time.Since(sess.Touched) > c.ttl {
					logrus.Debugf("Expiring abandoned setup session %v.", key)
					delete(c.sessions, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

//newSessionKey mints a session key unique across concurrent wizards run by
//the same user. The dash separator keeps keys from colliding with the colon
//used in custom IDs.
func newSessionKey(userID string) string {
	return fmt.Sprintf("%s-%d", userID, time.Now().UnixNano())
}
