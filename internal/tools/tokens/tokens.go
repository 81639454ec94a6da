// Package tokens implements the operator commands that bulk update or delete
// allocation tokens.
package tokens

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	xstrings "github.com/ptkach/nomulus/pkg/platform/strings"
)

// Selection picks tokens either by exact value or by prefix, never both.
type Selection struct {
	Tokens []string
	// Prefix is nil when not given, so a blank prefix can be rejected.
	Prefix *string
}

// ByTokens selects the listed tokens.
func ByTokens(tokens ...string) Selection {
	return Selection{Tokens: tokens}
}

// ByPrefix selects every token starting with prefix.
func ByPrefix(prefix string) Selection {
	return Selection{Prefix: &prefix}
}

// Update describes the changes applied to each selected token. Nil slices
// leave the field alone; an empty slice clears the restriction. Values are
// trimmed and deduplicated, TLDs lowercased.
type Update struct {
	AllowedRegistrars *[]string
	AllowedTLDs       *[]string
	// EndPromotion cancels the token's promotion as of the transaction time.
	EndPromotion bool
}

func (u Update) isEmpty() bool {
	return u.AllowedRegistrars == nil && u.AllowedTLDs == nil && !u.EndPromotion
}

// Result lists what a command did or, in a dry run, would have done.
type Result struct {
	Changed []string
	Skipped []string
	DryRun  bool
}

// Tool runs token commands against the registry store.
type Tool struct {
	manager *store.Manager
	logger  *slog.Logger
}

type Option func(*Tool)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		t.logger = logger
	}
}

func New(manager *store.Manager, opts ...Option) *Tool {
	t := &Tool{manager: manager, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update applies u to every selected token in a single transaction.
func (t *Tool) Update(ctx context.Context, sel Selection, u Update, dryRun bool) (Result, error) {
	if u.isEmpty() {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "nothing to update")
	}
	res := Result{DryRun: dryRun}
	_, err := t.manager.Transact(ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		res.Changed, res.Skipped = nil, nil
		selected, err := Select(ctx, tx, sel)
		if err != nil {
			return store.Rollback, err
		}
		for _, tok := range selected {
			changed := tok.Clone()
			if u.AllowedRegistrars != nil {
				changed.AllowedRegistrars = xstrings.Identifiers(*u.AllowedRegistrars)
			}
			if u.AllowedTLDs != nil {
				changed.AllowedTLDs = xstrings.Hostnames(*u.AllowedTLDs)
			}
			if u.EndPromotion {
				if status := changed.StatusAt(tx.Now()); status == models.TokenEnded || status == models.TokenCancelled {
					res.Skipped = append(res.Skipped, tok.Token)
					continue
				}
				if err := changed.EndPromotion(tx.Now(), models.TokenCancelled); err != nil {
					return store.Rollback, promotionError(tok.Token, err)
				}
			}
			changed.UpdateTime = tx.Now()
			if err := tx.Put(ctx, changed); err != nil {
				return store.Rollback, err
			}
			res.Changed = append(res.Changed, tok.Token)
		}
		return completion(dryRun), nil
	})
	if err != nil {
		return Result{}, err
	}
	t.logger.InfoContext(ctx, "allocation tokens updated",
		"changed", len(res.Changed),
		"skipped", len(res.Skipped),
		"dry_run", dryRun,
	)
	return res, nil
}

// promotionError reports a token whose timeline refused the cancellation.
// The refusal is deterministic, so it must not be retried.
func promotionError(token string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "cancel promotion of "+token)
}

// Delete removes every selected token that has not been redeemed. Redeemed
// tokens are kept because history entries refer to them.
func (t *Tool) Delete(ctx context.Context, sel Selection, dryRun bool) (Result, error) {
	res := Result{DryRun: dryRun}
	_, err := t.manager.Transact(ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		res.Changed, res.Skipped = nil, nil
		selected, err := Select(ctx, tx, sel)
		if err != nil {
			return store.Rollback, err
		}
		for _, tok := range selected {
			if tok.IsRedeemed() {
				res.Skipped = append(res.Skipped, tok.Token)
				continue
			}
			if err := tx.Delete(ctx, tok.Key()); err != nil {
				return store.Rollback, err
			}
			res.Changed = append(res.Changed, tok.Token)
		}
		return completion(dryRun), nil
	})
	if err != nil {
		return Result{}, err
	}
	t.logger.InfoContext(ctx, "allocation tokens deleted",
		"deleted", len(res.Changed),
		"skipped_redeemed", len(res.Skipped),
		"dry_run", dryRun,
	)
	return res, nil
}

// Select loads the tokens named by sel. Listed tokens must all exist.
func Select(ctx context.Context, r store.Reader, sel Selection) ([]*models.AllocationToken, error) {
	listed := xstrings.Identifiers(sel.Tokens)
	if (len(listed) > 0) == (sel.Prefix != nil) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "must provide one of tokens or prefix, not both or neither")
	}
	if sel.Prefix != nil {
		if strings.TrimSpace(*sel.Prefix) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "provided prefix should not be blank")
		}
		return store.QueryAll[*models.AllocationToken](ctx, r, store.Query{
			Kind:     models.KindAllocationToken,
			IDPrefix: *sel.Prefix,
		})
	}

	var (
		found   []*models.AllocationToken
		missing []string
	)
	for _, token := range listed {
		tok, ok, err := store.LoadIfPresent[*models.AllocationToken](ctx, r, models.AllocationTokenKey(token))
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, token)
			continue
		}
		found = append(found, tok)
	}
	if len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "tokens "+strings.Join(missing, ", ")+" did not exist")
	}
	return found, nil
}

func completion(dryRun bool) store.Completion {
	if dryRun {
		return store.Rollback
	}
	return store.Commit
}
