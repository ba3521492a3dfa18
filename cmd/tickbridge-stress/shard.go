package main

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/internal/config"
	"github.com/plus3/tickbridge/internal/hostsim"
	"github.com/plus3/tickbridge/world"
)

const flagName = "rally"

// ShardResult is what one shard contributes to the report.
type ShardResult struct {
	Shard     int
	Ticks     int
	Alive     int
	Deaths    int
	Respawns  int
	Reissues  int
	TickTime  Stats
	Game      world.Stats
	Host      hostsim.Stats
	Scheduler *world.SchedulerStats
}

// shard is one independent host and game pair. Shards share nothing, so
// they run on separate goroutines.
type shard struct {
	id    int
	cfg   config.Stress
	parts []body.Part
	rng   *rand.Rand
	log   *zap.Logger

	host   *hostsim.World
	game   *world.Game
	creeps []*world.Object

	deaths   int
	respawns int
	reissues int
}

func newShard(id int, cfg config.Config, parts []body.Part, logger *zap.Logger) *shard {
	host := hostsim.New()
	s := &shard{
		id:    id,
		cfg:   cfg.Stress,
		parts: parts,
		rng:   rand.New(rand.NewPCG(uint64(cfg.Stress.Seed), uint64(id))),
		log:   logger,
		host:  host,
		game: world.NewGame(host,
			world.WithLogger(logger),
			world.WithPruneInterval(cfg.World.PruneInterval),
			world.WithBatchRenew(cfg.World.BatchRenew),
		),
	}
	for _, room := range cfg.Stress.Rooms {
		host.SpawnRoom(room)
		host.Spawn(hostsim.Entity{
			Type: "flag",
			Name: flagName,
			Pos:  coord.RoomPosition{Position: coord.Position{X: 25, Y: 25}, Room: room},
		})
	}
	for range cfg.Stress.Entities {
		s.spawnCreep()
	}
	return s
}

func (s *shard) spawnCreep() {
	room := s.cfg.Rooms[s.rng.IntN(len(s.cfg.Rooms))]
	ref := s.host.Spawn(hostsim.Entity{
		Type: "creep",
		Id:   hostsim.NewObjectId(),
		Pos: coord.RoomPosition{
			Position: coord.Position{X: s.rng.IntN(coord.RoomSize), Y: s.rng.IntN(coord.RoomSize)},
			Room:     room,
		},
		Body: s.parts,
		Hits: 100 * len(s.parts),
	})
	o, err := s.game.Wrap(ref)
	if err != nil {
		s.log.Warn("wrap failed", zap.Error(err))
		return
	}
	s.creeps = append(s.creeps, o)
}

// churnSystem plays the host's part between ticks: creeps wander, some
// refs get reissued and some creeps die.
type churnSystem struct {
	s *shard
}

func (c churnSystem) Execute(*world.Frame) {
	s := c.s
	for _, o := range s.creeps {
		ref := o.Handle().Peek()
		e, ok := s.host.Entity(ref)
		if !ok {
			continue
		}
		r := s.rng.Float64()
		if r < s.cfg.DeathRate {
			s.host.Kill(ref)
			s.deaths++
			continue
		}
		d := coord.Direction(s.rng.IntN(8) + 1)
		if next := e.Pos.Position.Add(d); next.InBounds() {
			e.Pos.Position = next
		}
		if r < s.cfg.DeathRate+s.cfg.ReissueRate {
			if _, ok := s.host.Reissue(ref); ok {
				s.reissues++
			}
		}
	}
}

// trackSystem revalidates every creep and reads its per-tick state. Dead
// creeps are dropped and replaced once all systems have run.
type trackSystem struct {
	s *shard
}

func (t trackSystem) Execute(frame *world.Frame) {
	s := t.s
	frame.Game.BatchRenew(s.creeps)

	live := s.creeps[:0]
	for _, o := range s.creeps {
		if !o.Exists() {
			continue
		}
		if _, err := o.Position(); err != nil {
			s.log.Debug("position read failed", zap.Stringer("object", o), zap.Error(err))
			continue
		}
		if _, err := o.Body(); err != nil {
			s.log.Debug("body read failed", zap.Stringer("object", o), zap.Error(err))
			continue
		}
		live = append(live, o)
	}
	clear(s.creeps[len(live):])
	dead := len(s.creeps) - len(live)
	s.creeps = live

	if dead > 0 {
		frame.Defer(func() {
			for range dead {
				s.spawnCreep()
			}
			s.respawns += dead
		})
	}
}

// roomSystem resolves every room and its rally flag by key each tick.
type roomSystem struct {
	s *shard
}

func (r roomSystem) Execute(frame *world.Frame) {
	for _, c := range r.s.cfg.Rooms {
		if _, err := frame.Game.Room(c); err != nil {
			r.s.log.Warn("room lookup failed", zap.Stringer("room", c), zap.Error(err))
		}
		flag, err := frame.Game.ObjectByName(c, flagName)
		if err != nil {
			r.s.log.Warn("flag lookup failed", zap.Stringer("room", c), zap.Error(err))
			continue
		}
		if _, err := flag.Position(); err != nil {
			r.s.log.Warn("flag position failed", zap.Stringer("room", c), zap.Error(err))
		}
	}
}

func (s *shard) run(ctx context.Context) (ShardResult, error) {
	scheduler := world.NewScheduler(s.game)
	scheduler.Register(churnSystem{s: s})
	scheduler.Register(trackSystem{s: s})
	scheduler.Register(roomSystem{s: s})

	s.log.Info("shard starting", zap.Int("creeps", len(s.creeps)), zap.Int("ticks", s.cfg.Ticks))

	res := ShardResult{
		Shard: s.id,
		TickTime: Stats{
			Samples: make([]time.Duration, 0, s.cfg.Ticks),
		},
	}
	for range s.cfg.Ticks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := time.Now()
		scheduler.Once(1)
		res.TickTime.Samples = append(res.TickTime.Samples, time.Since(start))
		res.Ticks++
	}
	res.TickTime.Finalize()

	res.Alive = len(s.creeps)
	res.Deaths = s.deaths
	res.Respawns = s.respawns
	res.Reissues = s.reissues
	res.Game = s.game.Stats()
	res.Host = s.host.Stats()
	res.Scheduler = scheduler.GetStats()

	s.log.Info("shard finished",
		zap.Int("alive", res.Alive),
		zap.Int("deaths", res.Deaths),
		zap.Int64("reacquisitions", res.Game.Reacquisitions),
	)
	return res, nil
}
