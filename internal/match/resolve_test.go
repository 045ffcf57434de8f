// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package match_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/holomush/muckdb/internal/access"
	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/match"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/repository"
	"github.com/holomush/muckdb/internal/world"
)

type sent struct {
	to  dbref.Ref
	msg string
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Notify(_ context.Context, to dbref.Ref, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{to: to, msg: msg})
}

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		repo     *repository.Repository
		room     *world.Room
		player   *world.Player
		notes    *recorder
		metrics  *observability.Metrics
		resolver *match.Resolver
	)

	place := func(e world.Entity, in world.Entity) {
		Expect(repo.Move(ctx, e, in.Base().ID())).To(Succeed())
	}
	thing := func(name string, in world.Entity) *world.Thing {
		t, err := repository.Make(ctx, repo, world.NewThing)
		Expect(err).NotTo(HaveOccurred())
		t.SetName(name)
		place(t, in)
		return t
	}
	exit := func(name string, in world.Entity) *world.Exit {
		e, err := repository.Make(ctx, repo, world.NewExit)
		Expect(err).NotTo(HaveOccurred())
		e.SetName(name)
		place(e, in)
		return e
	}
	resolve := func(text string, opts ...match.ResolveOption) dbref.Ref {
		ref, err := resolver.Resolve(ctx, player, player, text, opts...)
		Expect(err).NotTo(HaveOccurred())
		return ref
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		repo, err = repository.New(ctx)
		Expect(err).NotTo(HaveOccurred())

		room, err = repository.Make(ctx, repo, world.NewRoom)
		Expect(err).NotTo(HaveOccurred())
		room.SetName("Town Square")
		player, err = repository.Make(ctx, repo, world.NewPlayer)
		Expect(err).NotTo(HaveOccurred())
		player.SetName("Wanderer")
		place(player, room)

		notes = &recorder{}
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		resolver = match.NewResolver(repo,
			match.WithNotifier(notes),
			match.WithMetrics(metrics),
			match.WithOracle(access.NewStatic(repo)),
			match.WithCoinFlip(func() bool { return true }),
		)
	})

	Describe("self and location", func() {
		It("resolves me to the subject regardless of other matches", func() {
			thing("me", room)
			thing("memento", player)
			Expect(resolve("me")).To(Equal(player.ID()))
			Expect(resolve("ME")).To(Equal(player.ID()))
		})

		It("resolves here to the subject's location", func() {
			Expect(resolve("here")).To(Equal(room.ID()))
		})
	})

	Describe("contents", func() {
		It("reports two partial matches as ambiguous", func() {
			thing("short sword", room)
			thing("long sword", player)
			Expect(resolve("sword")).To(Equal(dbref.Ambiguous))
			Expect(testutil.ToFloat64(metrics.Resolutions.WithLabelValues(match.OutcomeAmbiguous))).To(BeNumerically("==", 1))
		})

		It("picks one of two exact name matches instead of reporting ambiguity", func() {
			a := thing("sword", room)
			b := thing("sword", room)
			ref := resolve("sword")
			Expect(ref).NotTo(Equal(dbref.Ambiguous))
			Expect([]dbref.Ref{a.ID(), b.ID()}).To(ContainElement(ref))
		})

		It("resolves a single word-boundary match", func() {
			key := thing("brass key", room)
			thing("monkey", room)
			Expect(resolve("key")).To(Equal(key.ID()))
		})

		It("prefers an exact name over partial matches", func() {
			sword := thing("sword", player)
			thing("swordfish", room)
			thing("broad sword", room)
			Expect(resolve("SWORD")).To(Equal(sword.ID()))
		})

		It("breaks exact ties by environmental distance", func() {
			thing("lamp", room)
			mine := thing("lamp", player)
			Expect(resolve("lamp")).To(Equal(mine.ID()))
		})

		It("breaks exact ties by preferred kind", func() {
			thing("lamp", player)
			lampExit := exit("lamp", room)
			Expect(resolve("lamp", match.PreferKind(dbref.KindExit))).To(Equal(lampExit.ID()))
		})

		It("returns not found when nothing matches", func() {
			thing("rock", room)
			Expect(resolve("xyzzy")).To(Equal(dbref.NotFound))
		})
	})

	Describe("exits", func() {
		It("gives an exact alias precedence over a partial content match", func() {
			north := exit("north;n", room)
			thing("north-facing-statue", room)
			Expect(resolve("north")).To(Equal(north.ID()))
			Expect(resolve("N")).To(Equal(north.ID()))
		})

		It("matches extra aliases", func() {
			out := exit("out", room)
			out.SetAliases("leave", "exit")
			Expect(resolve("leave")).To(Equal(out.ID()))
		})

		It("does not partially match exit names", func() {
			exit("northeast", room)
			Expect(resolve("north")).To(Equal(dbref.NotFound))
		})
	})

	Describe("registered names", func() {
		It("finds a registration on an enclosing location", func() {
			_, err := room.SetProperty("_reg/home", world.RefProp(room.ID()))
			Expect(err).NotTo(HaveOccurred())
			Expect(resolve("$home")).To(Equal(room.ID()))
		})

		It("prefers the subject's own registration", func() {
			_, err := room.SetProperty("_reg/box", world.StringProp("#0R"))
			Expect(err).NotTo(HaveOccurred())
			box := thing("box", player)
			_, err = player.SetProperty("_reg/box", world.IntProp(box.ID().Number()))
			Expect(err).NotTo(HaveOccurred())

			ref := resolve("$box")
			Expect(ref.Equal(box.ID())).To(BeTrue())
		})

		It("never resolves a lock registration", func() {
			_, err := room.SetProperty("_reg/gate", world.LockProp{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resolve("$gate")).To(Equal(dbref.NotFound))
		})
	})

	Describe("absolute references", func() {
		It("resolves an existing entity", func() {
			statue := thing("statue", room)
			Expect(resolve(statue.ID().String())).To(Equal(statue.ID()))
			Expect(resolve("#" + "0")).To(Equal(room.ID()))
		})

		It("ignores a kind letter that disagrees with the entity", func() {
			statue := thing("statue", room)
			n := statue.ID().Number()
			for _, text := range []string{fmt.Sprintf("#%d", n), fmt.Sprintf("#%dR", n), fmt.Sprintf("#%dP", n)} {
				Expect(resolve(text)).To(Equal(statue.ID()), text)
			}
			Expect(resolve("#0P")).To(Equal(room.ID()))
		})

		It("rejects an entity that does not exist", func() {
			Expect(resolve("#999")).To(Equal(dbref.NotFound))
		})
	})

	Describe("ResolveNoisy", func() {
		It("tells the subject when nothing matches", func() {
			ref, err := resolver.ResolveNoisy(ctx, player, player, "xyzzy")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(Equal(dbref.NotFound))
			Expect(notes.sent).To(ConsistOf(sent{to: player.ID(), msg: "I don't understand 'xyzzy'."}))
		})

		It("collapses ambiguity to not found", func() {
			thing("red ball", room)
			thing("blue ball", room)
			ref, err := resolver.ResolveNoisy(ctx, player, player, "ball")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(Equal(dbref.NotFound))
			Expect(notes.sent).To(ConsistOf(sent{to: player.ID(), msg: "I don't know which 'ball' you mean!"}))
		})

		It("stays quiet on success", func() {
			_, err := resolver.ResolveNoisy(ctx, player, player, "me")
			Expect(err).NotTo(HaveOccurred())
			Expect(notes.sent).To(BeEmpty())
		})
	})

	It("returns the context error when cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := resolver.Resolve(cancelled, player, player, "me")
		Expect(err).To(MatchError(context.Canceled))
	})
})
