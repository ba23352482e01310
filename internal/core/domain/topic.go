package domain

import (
	"fmt"
	"strings"
)

const topicPrefix = "events."

// Action is the kind of change a mutation made to an aggregate.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Topic addresses the change events of one aggregate and action. Its wire
// form is events.<aggregate>.<action>.
type Topic struct {
	Aggregate string
	Action    Action
}

func NewTopic(aggregate string, action Action) Topic {
	return Topic{Aggregate: aggregate, Action: action}
}

// ParseTopic is the inverse of Topic.String.
func ParseTopic(raw string) (Topic, error) {
	rest, ok := strings.CutPrefix(raw, topicPrefix)
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, raw)
	}
	aggregate, action, ok := strings.Cut(rest, ".")
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, raw)
	}
	t := Topic{Aggregate: aggregate, Action: Action(action)}
	if !t.Valid() {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, raw)
	}
	return t, nil
}

func (t Topic) Valid() bool {
	if ValidateAggregateType(t.Aggregate) != nil {
		return false
	}
	switch t.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// EventType is the topic without its prefix, e.g. grocery.created.
func (t Topic) EventType() string {
	return t.Aggregate + "." + string(t.Action)
}

func (t Topic) String() string {
	return topicPrefix + t.EventType()
}
