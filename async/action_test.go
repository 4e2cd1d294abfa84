package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tailored-agentic-units/bund/async"
	"github.com/tailored-agentic-units/bund/bundle"
	"github.com/tailored-agentic-units/bund/observability"
	"github.com/tailored-agentic-units/bund/scheduler"
)

func plus(n int) bundle.ActionFunc {
	return func(_ *bundle.Bundle, s any, _ ...any) (any, error) {
		return s.(int) + n, nil
	}
}

func addResult(_ *bundle.Bundle, s any, args ...any) (any, error) {
	return s.(int) + args[0].(int), nil
}

var _ = Describe("Action", func() {
	var (
		loop    *scheduler.Loop
		fetches atomic.Int32
		fetch   async.FetchFunc
	)

	drain := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(loop.RunUntilIdle(ctx)).To(Succeed())
	}

	counter := func(m async.Mechanism) *bundle.Bundle {
		return bundle.MustNew(bundle.Definition{
			Key:          "counter",
			InitialState: 0,
			Actions: map[string]bundle.ActionFunc{
				"before":  plus(100),
				"success": addResult,
				"after":   plus(1000),
				"fetch": async.New(async.Config{
					Mechanism: m,
					Loop:      loop,
					Fetch:     fetch,
					Before:    "before",
					Success:   "success",
					After:     "after",
				}),
			},
		})
	}

	BeforeEach(func() {
		loop = scheduler.New()
		fetches.Store(0)
		fetch = func(context.Context, ...any) (any, error) {
			fetches.Add(1)
			time.Sleep(5 * time.Millisecond)
			return 10, nil
		}
	})

	It("should defer work to the next tick and return state unchanged", func() {
		b := counter(async.MechanismEvery)

		Expect(b.Dispatch("fetch")).To(Succeed())
		Expect(b.State()).To(Equal(0))
		Expect(fetches.Load()).To(BeZero())
		Expect(loop.Len()).To(Equal(1))

		drain()
		Expect(b.State()).To(Equal(1110))
	})

	Context("with MechanismOnce", func() {
		It("should run exactly one operation for the lifetime of the action", func() {
			b := counter(async.MechanismOnce)

			Expect(b.Dispatch("fetch")).To(Succeed())
			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(1110))

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(1110))
			Expect(fetches.Load()).To(Equal(int32(1)))
		})
	})

	Context("with MechanismFirst", func() {
		It("should collapse concurrent calls and accept calls after settling", func() {
			b := counter(async.MechanismFirst)

			Expect(b.Dispatch("fetch")).To(Succeed())
			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(1110))

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(2220))
			Expect(fetches.Load()).To(Equal(int32(2)))
		})
	})

	Context("with MechanismEvery", func() {
		It("should run every call independently", func() {
			b := counter(async.MechanismEvery)

			Expect(b.Dispatch("fetch")).To(Succeed())
			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(2220))
			Expect(fetches.Load()).To(Equal(int32(2)))
		})
	})

	Context("with MechanismSequential", func() {
		var b *bundle.Bundle

		BeforeEach(func() {
			b = bundle.MustNew(bundle.Definition{
				Key:          "letters",
				InitialState: 0,
				Actions: map[string]bundle.ActionFunc{
					"before": func(*bundle.Bundle, any, ...any) (any, error) { return "a", nil },
					"success": func(_ *bundle.Bundle, s any, _ ...any) (any, error) {
						return fmt.Sprintf("%v1", s), nil
					},
					"fetch": async.New(async.Config{
						Mechanism: async.MechanismSequential,
						Loop:      loop,
						Fetch:     fetch,
						Before:    "before",
						Success:   "success",
					}),
				},
			})
		})

		It("should serialize calls made while busy", func() {
			Expect(b.Dispatch("fetch")).To(Succeed())
			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal("a1"))
			Expect(fetches.Load()).To(Equal(int32(2)))
		})

		It("should collapse repeated busy calls into one retry with the latest args", func() {
			var seen []any
			fetch = func(_ context.Context, args ...any) (any, error) {
				seen = append(seen, args[0])
				return nil, nil
			}
			action, err := async.NewAction(async.Config{
				Mechanism: async.MechanismSequential,
				Loop:      loop,
				Fetch:     fetch,
			})
			Expect(err).NotTo(HaveOccurred())

			q := bundle.MustNew(bundle.Definition{
				Key:          "queue",
				InitialState: 0,
				Actions:      map[string]bundle.ActionFunc{"fetch": action.Handler()},
			})

			for i := 1; i <= 4; i++ {
				Expect(q.Dispatch("fetch", i)).To(Succeed())
			}
			drain()

			Expect(seen).To(Equal([]any{1, 4}))
			Expect(action.Stats().Started).To(Equal(2))
			Expect(action.Stats().InFlight).To(BeFalse())
			Expect(action.Stats().Parked).To(BeFalse())
		})
	})

	Context("when fetch fails", func() {
		It("should route the error to the error hook and still run after", func() {
			boom := errors.New("boom")
			var got error

			b := bundle.MustNew(bundle.Definition{
				Key:          "users",
				InitialState: 0,
				Actions: map[string]bundle.ActionFunc{
					"onError": func(_ *bundle.Bundle, s any, args ...any) (any, error) {
						got = args[0].(error)
						return s.(int) - 1, nil
					},
					"after": plus(1000),
					"fetch": async.New(async.Config{
						Mechanism: async.MechanismFirst,
						Loop:      loop,
						Fetch:     func(context.Context, ...any) (any, error) { return nil, boom },
						Error:     "onError",
						After:     "after",
					}),
				},
			})

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()

			Expect(got).To(MatchError(boom))
			Expect(b.State()).To(Equal(999))
		})
	})

	Context("with hooks", func() {
		It("should skip hooks that name unregistered actions", func() {
			b := bundle.MustNew(bundle.Definition{
				Key:          "k",
				InitialState: 0,
				Actions: map[string]bundle.ActionFunc{
					"after": plus(1),
					"fetch": async.New(async.Config{
						Loop:    loop,
						Fetch:   fetch,
						Before:  "missing",
						Success: "alsoMissing",
						After:   "after",
					}),
				},
			})

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(b.State()).To(Equal(1))
		})

		It("should report hook errors and still fire after", func() {
			hookErr := errors.New("bad success")
			rec := observability.NewRecorder()
			var reported []string

			b := bundle.MustNew(bundle.Definition{
				Key:          "k",
				InitialState: 0,
				Actions: map[string]bundle.ActionFunc{
					"success": func(*bundle.Bundle, any, ...any) (any, error) { return nil, hookErr },
					"after":   plus(1000),
					"fetch": async.New(async.Config{
						Loop:     loop,
						Fetch:    fetch,
						Success:  "success",
						After:    "after",
						Observer: rec,
						OnHookError: func(hook string, err error) {
							Expect(err).To(MatchError(hookErr))
							reported = append(reported, hook)
						},
					}),
				},
			})

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()

			Expect(reported).To(Equal([]string{"success"}))
			Expect(b.State()).To(Equal(1000))
			Expect(rec.Count(async.EventHookError)).To(Equal(1))
			Expect(rec.Count(async.EventSettle)).To(Equal(1))
		})

		It("should notify subscribers in hook order", func() {
			b := counter(async.MechanismEvery)
			var actions []string
			b.OnChange(func(sig bundle.Signal, _ *bundle.Bundle) {
				actions = append(actions, sig.Action)
			})

			Expect(b.Dispatch("fetch")).To(Succeed())
			drain()
			Expect(actions).To(Equal([]string{"fetch", "before", "success", "after"}))
		})
	})

	It("should pass dispatch arguments and the loop context to fetch", func() {
		type ctxKey struct{}
		ctx := context.WithValue(context.Background(), ctxKey{}, "loop")
		loop = scheduler.New(scheduler.WithContext(ctx))

		var gotArgs []any
		var gotCtx any
		b := bundle.MustNew(bundle.Definition{
			Key:          "k",
			InitialState: 0,
			Actions: map[string]bundle.ActionFunc{
				"fetch": async.New(async.Config{
					Loop: loop,
					Fetch: func(ctx context.Context, args ...any) (any, error) {
						gotArgs = args
						gotCtx = ctx.Value(ctxKey{})
						return nil, nil
					},
				}),
			},
		})

		Expect(b.Dispatch("fetch", "a", 2)).To(Succeed())
		drain()
		Expect(gotArgs).To(Equal([]any{"a", 2}))
		Expect(gotCtx).To(Equal("loop"))
	})

	Describe("configuration", func() {
		It("should reject a missing loop or fetch", func() {
			_, err := async.NewAction(async.Config{Fetch: fetch})
			Expect(err).To(MatchError(async.ErrNoLoop))

			_, err = async.NewAction(async.Config{Loop: loop})
			Expect(err).To(MatchError(async.ErrNoFetch))

			Expect(func() { async.New(async.Config{}) }).To(Panic())
		})

		It("should default to MechanismEvery", func() {
			a, err := async.NewAction(async.Config{Loop: loop, Fetch: fetch})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Mechanism()).To(Equal(async.MechanismEvery))
		})

		DescribeTable("ParseMechanism",
			func(in string, want async.Mechanism, ok bool) {
				got, err := async.ParseMechanism(in)
				if !ok {
					Expect(err).To(MatchError(async.ErrUnknownMechanism))
					return
				}
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			},
			Entry("empty", "", async.MechanismEvery, true),
			Entry("once", "once", async.MechanismOnce, true),
			Entry("mixed case", "First", async.MechanismFirst, true),
			Entry("sequential", " sequential ", async.MechanismSequential, true),
			Entry("unknown", "latest", async.Mechanism(""), false),
		)
	})
})
