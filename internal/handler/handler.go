// Package handler is the Handler Pipeline (spec component I): the sole
// entry point for an inbound message after parsing, composing the
// idempotency, cooldown, mutex, lead store, identity resolver, state
// machine, form validator and job dispatcher into one serialized per-user
// flow.
package handler

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/formvalidator"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/leadstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/metrics"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/statemachine"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

// Result is the outcome the transport adapter acts on (spec §4.I).
type Result struct {
	Success       bool
	ShouldReply   bool
	ReplyText     string
	SecondaryText string
	Error         error
}

// Config carries the tunables the pipeline reads from the process
// configuration (spec §6).
type Config struct {
	LockTTL                      time.Duration
	UserCooldown                 time.Duration
	LockMaxAttempts              int
	MaxWarnings                  int
	MarkBeforeCommit             bool
	IdentityMergeReparentInteractions bool
}

// Handler wires together every component of the core per spec §4.I.
type Handler struct {
	store      *leadstore.Store
	kv         kvstore.Store
	dispatcher *jobs.Dispatcher
	templates  *templates.Store
	cfg        Config
	log        zerolog.Logger
}

func New(store *leadstore.Store, kv kvstore.Store, dispatcher *jobs.Dispatcher, tpl *templates.Store, cfg Config, log zerolog.Logger) *Handler {
	return &Handler{store: store, kv: kv, dispatcher: dispatcher, templates: tpl, cfg: cfg, log: log}
}

// Handle implements the full §4.I pipeline.
func (h *Handler) Handle(ctx context.Context, msg parser.InboundMessage) Result {
	log := h.log.With().Str("transport", string(msg.Transport)).Str("user_id", msg.UserID).Str("message_id", msg.MessageID).Logger()

	// Step 1: idempotency.
	seen, err := h.kv.Seen(ctx, string(msg.Transport), msg.MessageID)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency check degraded, proceeding")
		metrics.BackingStoreDegraded.WithLabelValues("idempotency_seen").Inc()
	}
	if seen {
		return Result{Success: true}
	}
	if h.cfg.MarkBeforeCommit {
		if err := h.kv.Mark(ctx, string(msg.Transport), msg.MessageID); err != nil {
			log.Warn().Err(err).Msg("idempotency mark failed, proceeding")
			metrics.BackingStoreDegraded.WithLabelValues("idempotency_mark").Inc()
		}
	}

	// Step 2: outgoing messages from us.
	if msg.FromMe {
		lead, err := h.store.MarkExisting(ctx, msg.UserID, leadstore.Transport(msg.Transport))
		if err != nil {
			log.Error().Err(err).Msg("mark_existing failed")
			return Result{Success: false, Error: err}
		}
		if _, err := h.store.AddInteraction(ctx, lead.LeadID, msg.MessageID, msg.Text, leadstore.DirectionOut); err != nil {
			log.Warn().Err(err).Msg("record outbound interaction failed")
		}
		return Result{Success: true}
	}

	// Step 3: cooldown.
	inCooldown, err := h.kv.InCooldown(ctx, msg.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("cooldown check degraded, proceeding")
		metrics.BackingStoreDegraded.WithLabelValues("cooldown").Inc()
	}
	if inCooldown {
		_, _, err := h.store.GetOrCreate(ctx, msg.UserID, leadstore.Transport(msg.Transport), leadstore.GetOrCreateOptions{
			PushName: msg.Metadata.PushName, AltID: msg.Metadata.AltID,
		})
		if err == nil {
			if lead, gerr := h.store.GetByPrimary(ctx, msg.UserID); gerr == nil && lead != nil {
				_, _ = h.store.AddInteraction(ctx, lead.LeadID, msg.MessageID, msg.Text, leadstore.DirectionIn)
			}
		}
		return Result{Success: true}
	}

	// Step 4: mutex.
	token, ok := kvstore.AcquireWithRetry(ctx, h.kv, msg.UserID, h.cfg.LockMaxAttempts, h.cfg.LockTTL)
	if !ok {
		metrics.LockAcquireFailures.Inc()
		return Result{Success: false, Error: coreerrors.ErrLockFailed}
	}
	if token == "" {
		log.Warn().Msg("lock acquisition degraded, proceeding without a held lock")
		metrics.BackingStoreDegraded.WithLabelValues("lock_acquire").Inc()
	}
	defer func() {
		if err := h.kv.Release(ctx, msg.UserID, token); err != nil {
			log.Warn().Err(err).Msg("lock release failed")
		}
	}()

	if !h.cfg.MarkBeforeCommit {
		defer func() {
			if err := h.kv.Mark(ctx, string(msg.Transport), msg.MessageID); err != nil {
				log.Warn().Err(err).Msg("idempotency mark failed")
			}
		}()
	}

	// Step 5: transactional processing.
	var result Result
	txErr := h.store.WithTransaction(ctx, func(txCtx context.Context) error {
		// Resolve any pre-existing alt-only lead (spec §4.F case 2/3) before
		// GetOrCreate has a chance to create a brand-new primary row that
		// would otherwise hide it.
		if msg.Metadata.AltID != "" {
			if _, err := h.store.ResolveIdentity(txCtx, msg.UserID, msg.Metadata.AltID, h.cfg.IdentityMergeReparentInteractions); err != nil {
				return err
			}
		}

		lead, _, err := h.store.GetOrCreate(txCtx, msg.UserID, leadstore.Transport(msg.Transport), leadstore.GetOrCreateOptions{
			PushName: msg.Metadata.PushName, AltID: msg.Metadata.AltID,
		})
		if err != nil {
			return err
		}

		if _, err := h.store.AddInteraction(txCtx, lead.LeadID, msg.MessageID, msg.Text, leadstore.DirectionIn); err != nil {
			return err
		}

		if !statemachine.ReplyAllowed(lead.State) {
			result = Result{Success: true}
			return nil
		}

		result = h.dispatch(txCtx, lead, msg, &log)
		return nil
	})
	if txErr != nil {
		log.Error().Err(txErr).Msg("transactional processing failed")
		return Result{Success: false, Error: txErr}
	}

	// Step 6: post-commit cooldown.
	if result.ShouldReply {
		if err := h.kv.SetCooldown(ctx, msg.UserID, h.cfg.UserCooldown); err != nil {
			log.Warn().Err(err).Msg("set_cooldown failed")
			metrics.BackingStoreDegraded.WithLabelValues("cooldown_set").Inc()
		}
	}

	return result
}

// dispatch implements the §4.I state-dispatch subclauses. Invoked inside
// the outer transaction.
func (h *Handler) dispatch(ctx context.Context, lead *leadstore.Lead, msg parser.InboundMessage, log *zerolog.Logger) Result {
	switch lead.State {
	case statemachine.StateNew:
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateChooseOption); err != nil {
			log.Error().Err(err).Msg("NEW -> CHOOSE_OPTION failed")
			return Result{Success: false, Error: err}
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.Welcome)}

	case statemachine.StateChooseOption:
		return h.dispatchChooseOption(ctx, lead, msg, log)

	case statemachine.StateFormSent, statemachine.StateFormInProgress:
		return h.dispatchForm(ctx, lead, msg, log)

	case statemachine.StateFormCompleted:
		h.escalate(ctx, lead, msg, "post_form_contact", log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.QuestionReceived)}

	case statemachine.StatePartnership:
		h.escalate(ctx, lead, msg, "partnership_followup", log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.QuestionReceived)}

	default:
		return Result{Success: true}
	}
}

func (h *Handler) dispatchChooseOption(ctx context.Context, lead *leadstore.Lead, msg parser.InboundMessage, log *zerolog.Logger) Result {
	text := strings.TrimSpace(msg.Text)
	switch text {
	case "1":
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateFormSent); err != nil {
			log.Error().Err(err).Msg("CHOOSE_OPTION -> FORM_SENT failed")
			return Result{Success: false, Error: err}
		}
		return Result{
			Success: true, ShouldReply: true,
			ReplyText:     h.templates.Get(templates.ChooseOptionAck),
			SecondaryText: h.templates.Get(templates.FormTemplate),
		}
	case "2":
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateManualIntervention); err != nil {
			log.Error().Err(err).Msg("CHOOSE_OPTION -> MANUAL_INTERVENTION failed")
			return Result{Success: false, Error: err}
		}
		h.enqueueNotify(ctx, jobs.NotifyPartnership, lead, msg, log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.PartnershipAck)}
	case "3":
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateManualIntervention); err != nil {
			log.Error().Err(err).Msg("CHOOSE_OPTION -> MANUAL_INTERVENTION failed")
			return Result{Success: false, Error: err}
		}
		h.enqueueNotify(ctx, jobs.NotifyOtherNeeds, lead, msg, log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.OtherNeedsAck)}
	default:
		_, shouldEscalate, err := h.store.IncrementWarning(ctx, lead.LeadID, h.cfg.MaxWarnings)
		if err != nil {
			log.Error().Err(err).Msg("increment_warning failed")
			return Result{Success: false, Error: err}
		}
		if shouldEscalate {
			h.escalate(ctx, lead, msg, "max_warnings", log)
			return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.EscalationNotice)}
		}
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.InvalidOption)}
	}
}

func (h *Handler) dispatchForm(ctx context.Context, lead *leadstore.Lead, msg parser.InboundMessage, log *zerolog.Logger) Result {
	if lead.State == statemachine.StateFormSent {
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateFormInProgress); err != nil {
			log.Error().Err(err).Msg("FORM_SENT -> FORM_IN_PROGRESS failed")
			return Result{Success: false, Error: err}
		}
	}

	existingFrag, err := h.store.GetForm(ctx, lead.LeadID)
	if err != nil {
		return Result{Success: false, Error: err}
	}
	existing := formvalidator.Fragment{}
	if existingFrag != nil {
		existing = formvalidator.Fragment{
			Biodata: existingFrag.Biodata, SourceInfo: existingFrag.SourceInfo,
			BusinessType: existingFrag.BusinessType, Budget: existingFrag.Budget, StartPlan: existingFrag.StartPlan,
		}
	}

	parsed := formvalidator.Parse(msg.Text)
	validated := formvalidator.Validate(parsed, existing)

	stored, err := h.store.UpsertForm(ctx, lead.LeadID, leadstore.FormFragment{
		Biodata: parsed.Biodata, SourceInfo: parsed.SourceInfo, BusinessType: parsed.BusinessType,
		Budget: parsed.Budget, StartPlan: parsed.StartPlan,
	})
	if err != nil {
		return Result{Success: false, Error: err}
	}

	if validated.Valid {
		completed := *stored
		completed.Completed = true
		if _, err := h.store.UpsertForm(ctx, lead.LeadID, completed); err != nil {
			return Result{Success: false, Error: err}
		}
		if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateFormCompleted); err != nil {
			log.Error().Err(err).Msg("FORM_IN_PROGRESS -> FORM_COMPLETED failed")
			return Result{Success: false, Error: err}
		}
		if h.dispatcher != nil {
			_ = h.dispatcher.EnqueueSpreadsheetSync(ctx, jobs.SpreadsheetSyncPayload{
				LeadID: lead.LeadID, UserID: msg.UserID, Transport: string(msg.Transport),
				Form: map[string]string{
					"biodata": validated.Merged.Biodata, "source_info": validated.Merged.SourceInfo,
					"business_type": validated.Merged.BusinessType, "budget": validated.Merged.Budget,
					"start_plan": validated.Merged.StartPlan,
				},
			})
		}
		h.enqueueNotify(ctx, jobs.NotifyFormCompleted, lead, msg, log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.FormReceived)}
	}

	_, shouldEscalate, err := h.store.IncrementWarning(ctx, lead.LeadID, h.cfg.MaxWarnings)
	if err != nil {
		return Result{Success: false, Error: err}
	}
	if shouldEscalate {
		h.escalate(ctx, lead, msg, "max_warnings", log)
		return Result{Success: true, ShouldReply: true, ReplyText: h.templates.Get(templates.EscalationNotice)}
	}
	return Result{Success: true, ShouldReply: true, ReplyText: formvalidator.ExplainMissing(validated.Missing)}
}

// escalate implements spec §4.I's Escalate definition: attempt
// MANUAL_INTERVENTION, swallowing InvalidTransition since the lead may
// already be there, and enqueue an escalation notification.
func (h *Handler) escalate(ctx context.Context, lead *leadstore.Lead, msg parser.InboundMessage, reason string, log *zerolog.Logger) {
	if _, err := h.store.UpdateState(ctx, lead.LeadID, statemachine.StateManualIntervention); err != nil {
		if !isInvalidTransition(err) {
			log.Warn().Err(err).Msg("escalate: update_state failed unexpectedly")
		}
	}
	metrics.Escalations.WithLabelValues(reason).Inc()
	if h.dispatcher != nil {
		_ = h.dispatcher.EnqueueOperatorNotify(ctx, jobs.OperatorNotifyPayload{
			Kind: jobs.NotifyEscalation,
			Data: map[string]any{
				"user_id":       msg.UserID,
				"last_message":  msg.Text,
				"current_state": string(lead.State),
				"warning_count": lead.WarningCount,
				"transport":     string(msg.Transport),
				"reason":        reason,
				"timestamp":     time.Now().UTC(),
			},
		})
	}
}

func (h *Handler) enqueueNotify(ctx context.Context, kind jobs.NotificationKind, lead *leadstore.Lead, msg parser.InboundMessage, log *zerolog.Logger) {
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.EnqueueOperatorNotify(ctx, jobs.OperatorNotifyPayload{
		Kind: kind,
		Data: map[string]any{
			"lead_id":   lead.LeadID,
			"user_id":   msg.UserID,
			"transport": string(msg.Transport),
		},
	}); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("enqueue operator notify failed")
	}
}

func isInvalidTransition(err error) bool {
	return err != nil && coreerrors.New(coreerrors.KindInvalidTransition, "", nil).Is(err)
}
