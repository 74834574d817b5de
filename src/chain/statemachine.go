package chain

// Advance is a pure function implementing the lifecycle transition
// table from spec.md §4.3. It never performs I/O and never mutates a
// Session directly — SessionManager applies the returned state.
//
// cursor and total are the session's *current_step* and *total_steps*
// after whatever step-advance the caller already computed; they are
// only consulted for the Read event's Completed special case.
func Advance(current SessionState, event Event, cursor, total int) (SessionState, error) {
	switch event {
	case EventPatched:
		return StateModified, nil
	case EventReplaced:
		return StateReinitialized, nil
	case EventRead:
		switch current {
		case StateInitialized, StateInProgress, StateModified, StateReinitialized:
			if cursor >= total {
				return StateCompleted, nil
			}
			return StateInProgress, nil
		case StateCompleted:
			return current, NewError(KindAlreadyCompleted, "session has already completed")
		case StateError:
			return current, NewError(KindInErrorState, "session is in the error state")
		default:
			return current, NewError(KindInvalidTransition, "no such state")
		}
	case EventCreated:
		return StateInitialized, nil
	case EventTerminated:
		// Terminated removes the session; the caller deletes the
		// record rather than storing a resulting state.
		return current, nil
	default:
		return current, NewError(KindInvalidTransition, "unrecognized event")
	}
}
