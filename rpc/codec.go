package rpc

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/model"
	"consensusmc/simulator"
	"consensusmc/state"

	"google.golang.org/protobuf/types/known/structpb"
)

var errBadRequest = errors.New("rpc: Malformed request")

func field(req *structpb.Struct, key string) *structpb.Value {
	if req == nil {
		return nil
	}
	return req.GetFields()[key]
}

func integer(v *structpb.Value, key string) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%w: %v must be an integer", errBadRequest, key)
	}
	return int(n.NumberValue), nil
}

// Read an integer field. Returns def if the field is not set.
func intField(req *structpb.Struct, key string, def int) (int, error) {
	v := field(req, key)
	if v == nil {
		return def, nil
	}
	return integer(v, key)
}

func intList(req *structpb.Struct, key string) ([]int, error) {
	v := field(req, key)
	if v == nil {
		return []int{}, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %v must be a list", errBadRequest, key)
	}
	out := make([]int, 0, len(list.GetValues()))
	for _, elem := range list.GetValues() {
		n, err := integer(elem, key)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func stringField(req *structpb.Struct, key string, def string) (string, error) {
	v := field(req, key)
	if v == nil {
		return def, nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %v must be a string", errBadRequest, key)
	}
	return s.StringValue, nil
}

func stringList(req *structpb.Struct, key string) ([]string, error) {
	v := field(req, key)
	if v == nil {
		return []string{}, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %v must be a list", errBadRequest, key)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, elem := range list.GetValues() {
		s, ok := elem.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %v must be a list of strings", errBadRequest, key)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// Build the initial snapshot described by the nodes, values, maxFailures and maxLosses fields.
func decodeSystem(req *structpb.Struct) (*model.System, error) {
	nodes, err := intList(req, "nodes")
	if err != nil {
		return nil, err
	}
	names, err := stringList(req, "values")
	if err != nil {
		return nil, err
	}
	maxFailures, err := intField(req, "maxFailures", 0)
	if err != nil {
		return nil, err
	}
	maxLosses, err := intField(req, "maxLosses", model.UnlimitedLosses)
	if err != nil {
		return nil, err
	}
	values := make([]model.Value, 0, len(names))
	for _, name := range names {
		values = append(values, model.Value(name))
	}
	return simulator.Initialize(nodes, values, maxFailures, simulator.WithMaxLosses(maxLosses))
}

func ints(in []int) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, n := range in {
		out = append(out, n)
	}
	return out
}

func eventIds(trace state.Trace) []interface{} {
	out := []interface{}{}
	for _, id := range trace.EventIds() {
		out = append(out, string(id))
	}
	return out
}

func encodeSystem(sys *model.System) map[string]interface{} {
	nodes := []interface{}{}
	for _, id := range sys.NodeIds() {
		n := sys.Node(id)
		nodes = append(nodes, map[string]interface{}{
			"id":     n.ID,
			"role":   n.Role.String(),
			"value":  string(n.Value),
			"votes":  ints(n.Voters()),
			"faulty": n.Faulty,
		})
	}
	messages := []interface{}{}
	for _, m := range sys.Channel.Messages() {
		messages = append(messages, m.String())
	}
	return map[string]interface{}{
		"nodes":    nodes,
		"messages": messages,
		"lost":     sys.Lost,
		"key":      sys.Key(),
	}
}

func encodeEnabled(enabled []event.Event) []interface{} {
	out := make([]interface{}, 0, len(enabled))
	for _, evt := range enabled {
		out = append(out, string(evt.Id()))
	}
	return out
}

func encodeResult(res simulator.Result) map[string]interface{} {
	decided := map[string]interface{}{}
	for id, v := range res.Decided {
		decided[strconv.Itoa(id)] = string(v)
	}
	return map[string]interface{}{
		"decided":      decided,
		"faulty":       ints(res.Faulty),
		"messageCount": res.MessageCount,
		"stalled":      res.Stalled,
	}
}

func encodeViolation(v *checking.InvariantViolation) map[string]interface{} {
	return map[string]interface{}{
		"property": v.Predicate,
		"trace":    eventIds(v.Trace),
	}
}
