package interaction

import (
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// KeyEvent is a key press. InputFocused is set while a text input has
// focus; such presses are ignored.
type KeyEvent struct {
	Key          string
	InputFocused bool
}

// layoutKeys maps single-letter shortcuts to layouts
var layoutKeys = map[string]visualization.Kind{
	"f": visualization.KindForce,
	"h": visualization.KindHierarchical,
	"c": visualization.KindCircular,
	"r": visualization.KindRadial,
	"g": visualization.KindGrid,
	"k": visualization.KindClustered,
}

// LayoutForKey returns the layout bound to key
func LayoutForKey(key string) (visualization.Kind, bool) {
	kind, ok := layoutKeys[key]
	return kind, ok
}

// KeyPress handles a keyboard shortcut and reports whether it was consumed
func (c *Controller) KeyPress(ev KeyEvent) bool {
	if ev.InputFocused {
		return false
	}
	if kind, ok := layoutKeys[ev.Key]; ok {
		if c.cb.OnSwitchLayout != nil {
			if err := c.cb.OnSwitchLayout(kind); err != nil {
				c.logger.Warn("layout switch failed", logging.Layout(string(kind)), logging.Error(err))
				c.notifier.Notify("Layout switch failed")
			}
		}
		return true
	}

	switch ev.Key {
	case "s":
		if c.cb.OnSave != nil {
			if err := c.cb.OnSave(); err != nil {
				c.logger.Warn("save layout failed", logging.Error(err))
				c.notifier.Notify("Could not save layout")
			} else {
				c.notifier.Notify("Layout saved")
			}
		}
	case "Escape", "esc", "x":
		c.ClearSelection()
	case "+", "=":
		c.ZoomBy(c.cfg.ZoomStep)
	case "-":
		c.ZoomBy(1 / c.cfg.ZoomStep)
	case "0":
		c.ResetView()
	default:
		return false
	}
	return true
}
