package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/leveling"
)

const tickInterval = 500 * time.Millisecond

type mockUser struct {
	id         string
	username   string
	chattiness float64 // probability of posting a message on each tick
	bot        bool
}

// Generator feeds fabricated chat activity through the real award
// engine, for exercising the gateway and store end to end in dev mode.
type Generator struct {
	engine *leveling.Engine
	log    *zap.Logger
	rng    *rand.Rand
	users  []mockUser
}

func NewGenerator(engine *leveling.Engine, log *zap.Logger) *Generator {
	faker := gofakeit.New(0)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := make([]mockUser, 0, 9)
	for i := 0; i < 8; i++ {
		users = append(users, mockUser{
			id:         faker.DigitN(18),
			username:   faker.Username(),
			chattiness: 0.1 + rng.Float64()*0.5,
		})
	}
	// One bot author to exercise the ignore-bots policy.
	users = append(users, mockUser{
		id:         faker.DigitN(18),
		username:   faker.Username() + "-bot",
		chattiness: 0.8,
		bot:        true,
	})

	return &Generator{
		engine: engine,
		log:    log,
		rng:    rng,
		users:  users,
	}
}

// Start launches the tick loop; it stops when ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	g.log.Info("mock generator started", zap.Int("users", len(g.users)))
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.tick(ctx, time.Now())
			}
		}
	}()
}

// tick posts one message per user that "decides" to chat this round.
func (g *Generator) tick(ctx context.Context, now time.Time) {
	for _, u := range g.users {
		if g.rng.Float64() > u.chattiness {
			continue
		}
		_, err := g.engine.Grant(ctx, leveling.Event{
			UserID:   u.id,
			Username: u.username,
			At:       now,
			Bot:      u.bot,
		})
		if err != nil {
			g.log.Warn("mock grant failed", zap.String("user_id", u.id), zap.Error(err))
		}
	}
}
