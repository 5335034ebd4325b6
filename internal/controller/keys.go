package controller

// Action is the outcome of a key press.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePlay
	ActionReset
	ActionShowTimeline
	ActionShowNetwork
	ActionFocusSearch
	ActionClear
	ActionFaster
	ActionSlower
	ActionRetry
)

const speedStep = 5

// HandleKey applies the keyboard shortcut bound to key. Keys are ignored while
// the search box has focus, except escape which releases it.
func (c *Controller) HandleKey(key string) Action {
	if c.searchFocus {
		if key == "esc" {
			c.searchFocus = false
			return ActionClear
		}
		return ActionNone
	}

	switch key {
	case " ", "space":
		c.TogglePlay()
		return ActionTogglePlay
	case "r":
		c.Reset()
		return ActionReset
	case "t", "1":
		c.SwitchView(ModeTimeline)
		return ActionShowTimeline
	case "n", "2":
		c.SwitchView(ModeNetwork)
		return ActionShowNetwork
	case "/":
		c.searchFocus = true
		return ActionFocusSearch
	case "esc":
		c.ClearSelection()
		return ActionClear
	case "+", "=":
		c.SetSpeed(c.timeline.Speed() + speedStep)
		return ActionFaster
	case "-", "_":
		c.SetSpeed(c.timeline.Speed() - speedStep)
		return ActionSlower
	case "R":
		if c.status == StatusError && c.errState != nil && c.errState.Retryable {
			return ActionRetry
		}
	}
	return ActionNone
}
