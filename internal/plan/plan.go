package plan

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// SelfTester is the external collaborator that verifies a freshly installed
// Nix actually works (spec.md §4.7 step 5: "run the post-install self-test").
// What it checks — running `nix --version`, evaluating a trivial expression
// — is out of scope here; the engine only specifies the interface so Plan
// can call it.
type SelfTester interface {
	SelfTest(ctx context.Context) error
}

// Plan is the ordered sequence of stateful actions a planner assembled,
// plus the descriptor and version that round-trip through a Receipt
// (spec.md §3 "Plan", §6 receipt format).
type Plan struct {
	Version        string                 `json:"version"`
	Planner        PlannerDescriptor      `json:"planner"`
	Actions        []*action.Stateful     `json:"actions"`
	DiagnosticData map[string]interface{} `json:"diagnostic_data,omitempty"`
}

// New returns a Plan stamped with the engine's own version.
func New(planner PlannerDescriptor, actions []*action.Stateful) *Plan {
	return &Plan{
		Version: EngineVersion,
		Planner: planner,
		Actions: actions,
	}
}

// Install runs every action in order (spec.md §4.7 InstallPlan::install):
// between actions it checks ctx for cancellation non-blockingly — never
// mid-action, since an action's own Execute has no cancellation point of
// its own — persisting the receipt and returning before starting the next
// action if the caller has asked to stop. The receipt is persisted again
// after any action failure and once more after the last action succeeds,
// before the self-test runs. A self-test failure is returned with the
// receipt already on disk: the install itself succeeded.
func (p *Plan) Install(ctx context.Context, fs ports.FileSystem, logger ports.Logger, receiptPath string, selfTest SelfTester) error {
	if err := CheckVersionCompatible(p.Version); err != nil {
		return err
	}

	for _, stateful := range p.Actions {
		select {
		case <-ctx.Done():
			p.logTransition(ctx, logger, stateful, "cancelled before execute")
			if err := p.persist(fs, receiptPath); err != nil {
				return err
			}
			return installerrors.New(installerrors.KindCancelled, ctx.Err())
		default:
		}

		p.logTransition(ctx, logger, stateful, "executing")
		if err := stateful.TryExecute(ctx); err != nil {
			p.logTransition(ctx, logger, stateful, "execute failed")
			if perr := p.persist(fs, receiptPath); perr != nil {
				return perr
			}
			return err
		}
		p.logTransition(ctx, logger, stateful, "executed")
	}

	if err := p.persist(fs, receiptPath); err != nil {
		return err
	}

	if selfTest == nil {
		return nil
	}
	if err := selfTest.SelfTest(ctx); err != nil {
		return err
	}
	return nil
}

// Uninstall reverts every action in reverse order (spec.md §4.7
// InstallPlan::uninstall): every action's TryRevert runs regardless of an
// earlier one failing, and their errors are aggregated rather than
// short-circuited, matching composite revert semantics. Nothing is
// persisted — receipt deletion is itself a leaf action placed near the end
// of the sequence by the planner, when the plan includes one.
func (p *Plan) Uninstall(ctx context.Context, logger ports.Logger) error {
	var errs []error
	for i := len(p.Actions) - 1; i >= 0; i-- {
		stateful := p.Actions[i]

		select {
		case <-ctx.Done():
			errs = append(errs, installerrors.New(installerrors.KindCancelled, ctx.Err()))
			return installerrors.AsMultipleChildren(errs)
		default:
		}

		p.logTransition(ctx, logger, stateful, "reverting")
		if err := stateful.TryRevert(ctx); err != nil {
			p.logTransition(ctx, logger, stateful, "revert failed")
			errs = append(errs, err)
			continue
		}
		p.logTransition(ctx, logger, stateful, "reverted")
	}
	return installerrors.AsMultipleChildren(errs)
}

// logTransition emits one line per action transition, the way preflight's
// executor logs a step result, using the action's own tracing synopsis
// rather than its Go type name.
func (p *Plan) logTransition(ctx context.Context, logger ports.Logger, stateful *action.Stateful, verb string) {
	if logger == nil {
		return
	}
	logger.Info(ctx, verb,
		ports.F("action", string(stateful.Action.Tag())),
		ports.F("synopsis", stateful.Action.TracingSynopsis()),
	)
}

func (p *Plan) persist(fs ports.FileSystem, receiptPath string) error {
	return WriteReceipt(fs, receiptPath, p)
}
