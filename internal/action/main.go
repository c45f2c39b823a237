package action

import "context"

// MainFunc is the native entry-point signature: a decoded parameter object in,
// a result object out. Errors are reported as {"error": "..."} and an absent
// result as an empty map.
type MainFunc func(map[string]any) map[string]any

// NewMain adapts an action to MainFunc.
func NewMain(a Action) MainFunc {
	return func(obj map[string]any) map[string]any {
		params, err := ParamsFromMap(obj)
		if err != nil {
			return ToMap(nil, err)
		}
		d, err := a.Invoke(context.Background(), params)
		if err != nil {
			return ToMap(nil, err)
		}
		return ToMap(d, nil)
	}
}

var (
	startSessionMain = NewMain(NewStartSessionHandler())
	stopSessionMain  = NewMain(NewStopSessionHandler())
)

// StartSessionMain runs the start-session action with the system clock.
func StartSessionMain(obj map[string]any) map[string]any {
	return startSessionMain(obj)
}

// StopSessionMain runs the stop-session action.
func StopSessionMain(obj map[string]any) map[string]any {
	return stopSessionMain(obj)
}
