package dialog

import (
	"context"
	"log/slog"

	"github.com/coverline/coverline/plugin/nlu"
	"github.com/coverline/coverline/plugin/registry"
	"github.com/coverline/coverline/server/retrieval"
	"github.com/coverline/coverline/server/session"
)

// Turn processes one user utterance against the session identified by
// sessionID ("" starts a new conversation) and returns the assistant's
// response. Turns against the same session serialize on the store's
// per-session lock.
func (o *Orchestrator) Turn(ctx context.Context, sessionID, utterance string) (*TurnResult, error) {
	sess, err := o.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := o.store.Lock(sess.ID)
	defer unlock()

	appendMessage(sess, roleUser, utterance, nil)

	// Guardrail applies outside active collection. A confirmation reply
	// ("yes"/"no") would never pass it, so the confirming stage is exempt too.
	if sess.Stage != session.StageCollecting && sess.Stage != session.StageConfirming {
		if !o.guard.IsOnTopic(utterance) {
			slog.Debug("guardrail rejected utterance", "session_id", sess.ID)
			return o.respond(sess, offTopicReply, true, "", nil), nil
		}
	}

	result, resolved := o.resolveConfirmation(sess, utterance)
	if !resolved {
		tc := nlu.TurnContext{
			Topic:     sess.Topic,
			Collected: sess.Collected,
			AskingFor: o.askingFor(sess),
			History:   historyLines(sess, historyWindow),
		}
		result, err = o.extractor.Extract(ctx, utterance, tc)
		if err != nil {
			// Slots survive so the user can retry on the next turn.
			slog.Error("extraction failed", "session_id", sess.ID, "error", err)
			return o.respond(sess, extractionFailedReply, true, "", nil), nil
		}
	}

	if done := o.resolveTopic(sess, result); done != nil {
		return done, nil
	}

	merged := o.mergeEntities(sess, result.Entities)

	missing := missingSlots(o.registry.RequiredSlots(sess.Topic), sess.Collected)
	if len(missing) > 0 {
		sess.Stage = session.StageCollecting
		question := o.registry.Question(ctx, missing[0], registry.QuestionContext{
			Topic:     sess.Topic,
			Collected: sess.Collected,
			History:   historyLines(sess, historyWindow),
		})
		reply := question
		if len(merged) > 0 {
			last := merged[len(merged)-1]
			reply = acknowledge(last, sess.Collected[last], len(sess.Collected)) + "\n\n" + question
		}
		return o.respond(sess, reply, true, question, nil), nil
	}

	return o.search(ctx, sess)
}

// resolveConfirmation consumes a pending topic-switch confirmation. An
// affirmative reply merges the reusable slots under the triggering turn's
// entities and skips extraction (the reply itself carries no information).
// Any other reply is an implicit decline: only the triggering turn's entities
// survive, and the reply still goes through extraction since it may carry new
// slot values.
func (o *Orchestrator) resolveConfirmation(sess *session.Session, utterance string) (nlu.Result, bool) {
	if sess.Stage != session.StageConfirming || sess.Pending == nil {
		return nlu.Result{}, false
	}

	pending := sess.Pending
	sess.Pending = nil
	sess.Topic = pending.Topic
	sess.Stage = session.StageCollecting

	if isAffirmative(utterance) {
		merged := copyMap(pending.Reusable)
		for k, v := range pending.Extracted {
			merged[k] = v
		}
		sess.Collected = merged
		slog.Debug("reconciliation accepted",
			"session_id", sess.ID,
			"topic", pending.Topic,
			"reused", len(pending.Reusable))
		return nlu.Result{Topic: pending.Topic}, true
	}

	sess.Collected = copyMap(pending.Extracted)
	slog.Debug("reconciliation declined", "session_id", sess.ID, "topic", pending.Topic)
	return nlu.Result{}, false
}

// resolveTopic applies the topic transition rules. A non-nil return is the
// turn's final response (a reconciliation confirmation prompt).
func (o *Orchestrator) resolveTopic(sess *session.Session, result nlu.Result) *TurnResult {
	switch {
	case sess.Stage == session.StageCollecting && sess.Topic != "":
		// Mid-collection the existing topic is authoritative; the detected
		// topic only biased the extractor's own heuristics. An error-stage
		// turn is not exempt: a topic change there goes through
		// reconciliation below, while a same-topic retry falls through to
		// the default case and re-runs the search with the retained slots.

	case sess.Stage == session.StageComplete:
		if result.Topic != sess.Topic {
			sess.Collected = make(map[string]string)
			sess.Topic = result.Topic
		} else if !o.opts.RetainSlotsAfterComplete {
			sess.Collected = make(map[string]string)
		}
		sess.Stage = session.StageCollecting

	case sess.Topic != "" && result.Topic != sess.Topic && len(sess.Collected) > 0:
		reusable := o.reusableSlots(result.Topic, sess.Collected)
		if len(reusable) == 0 {
			sess.Collected = make(map[string]string)
			sess.Topic = result.Topic
			return nil
		}
		prompt := confirmationPrompt(o.registry, result.Topic, reusable)
		sess.Pending = &session.Reconciliation{
			Topic:     result.Topic,
			Reusable:  reusable,
			Extracted: copyMap(result.Entities),
			Prompt:    prompt,
		}
		sess.Stage = session.StageConfirming
		return o.respond(sess, prompt, true, prompt, nil)

	default:
		sess.Topic = result.Topic
	}
	return nil
}

// mergeEntities folds the extracted entities into the session, last write
// wins, and returns the merged slot ids in registry order.
func (o *Orchestrator) mergeEntities(sess *session.Session, entities map[string]string) []string {
	if len(entities) == 0 {
		return nil
	}
	if sess.Collected == nil {
		sess.Collected = make(map[string]string)
	}

	var merged []string
	for _, slotID := range o.slotOrder(sess.Topic) {
		value, ok := entities[slotID]
		if !ok || value == "" {
			continue
		}
		sess.Collected[slotID] = value
		merged = append(merged, slotID)
	}
	return merged
}

// slotOrder lists the topic's required then optional slots, then every other
// known slot, giving merges and acknowledgments a stable order.
func (o *Orchestrator) slotOrder(topic string) []string {
	seen := make(map[string]bool)
	var order []string
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}
	add(o.registry.RequiredSlots(topic))
	add(o.registry.OptionalSlots(topic))
	add(o.registry.Slots())
	return order
}

// askingFor is the slot the conversation is currently collecting, "" when no
// topic is set or nothing is missing.
func (o *Orchestrator) askingFor(sess *session.Session) string {
	if sess.Topic == "" {
		return ""
	}
	missing := missingSlots(o.registry.RequiredSlots(sess.Topic), sess.Collected)
	if len(missing) == 0 {
		return ""
	}
	return missing[0]
}

func missingSlots(required []string, collected map[string]string) []string {
	var missing []string
	for _, id := range required {
		if collected[id] == "" {
			missing = append(missing, id)
		}
	}
	return missing
}

func (o *Orchestrator) search(ctx context.Context, sess *session.Session) (*TurnResult, error) {
	sess.Stage = session.StageSearching
	slog.Info("all required slots collected, searching",
		"session_id", sess.ID,
		"topic", sess.Topic,
		"slots", len(sess.Collected))

	summary, hits, err := o.retriever.Run(ctx, sess.Topic, firstUserUtterance(sess), sess.Collected)
	if err != nil {
		// Collected slots survive so the next turn can retry the search.
		sess.Stage = session.StageError
		slog.Error("retrieval failed", "session_id", sess.ID, "error", err)
		return o.respond(sess, searchFailedReply, false, "", nil), nil
	}

	sess.Stage = session.StageComplete
	return o.respond(sess, summary, false, "", hits), nil
}

// respond appends the assistant message and snapshots the session into a
// TurnResult.
func (o *Orchestrator) respond(sess *session.Session, text string, requiresInput bool, nextQuestion string, hits []retrieval.Hit) *TurnResult {
	var attached []session.SearchResult
	for _, h := range hits {
		attached = append(attached, session.SearchResult{
			Title:       h.Title,
			Description: h.Description,
			URL:         h.URL,
			Snippets:    h.Snippets,
		})
	}
	appendMessage(sess, roleAssistant, text, attached)

	return &TurnResult{
		SessionID:     sess.ID,
		Response:      text,
		RequiresInput: requiresInput,
		NextQuestion:  nextQuestion,
		Collected:     copyMap(sess.Collected),
		Results:       hits,
		Status:        sess.Stage,
	}
}
