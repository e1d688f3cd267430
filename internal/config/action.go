package config

import (
	"fmt"
	"strconv"
	"strings"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionExit
	ActionReload
	ActionExec
	ActionSpawn
	ActionClose
	ActionKill
	ActionFocus
	ActionMove
	ActionSwap
	ActionFullscreen
	ActionFloating
	ActionMaximize
	ActionResize
	ActionWorkspace
	ActionMoveToWorkspace
	ActionMoveToWorkspaceSilent
	ActionSplitH
	ActionSplitV
	ActionSplitToggle
	ActionCursorTheme
)

type Direction int

const (
	DirNext Direction = iota
	DirPrev
	DirLeft
	DirRight
	DirUp
	DirDown
	DirGrow
	DirShrink
)

func parseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "next", "n":
		return DirNext, true
	case "prev", "previous", "p":
		return DirPrev, true
	case "left", "l":
		return DirLeft, true
	case "right", "r":
		return DirRight, true
	case "up", "u":
		return DirUp, true
	case "down", "d":
		return DirDown, true
	}
	return 0, false
}

func parseResizeDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "grow", "+":
		return DirGrow, true
	case "shrink", "-":
		return DirShrink, true
	}
	d, ok := parseDirection(s)
	if !ok || d == DirNext || d == DirPrev {
		return 0, false
	}
	return d, true
}

type Toggle int

const (
	Toggled Toggle = iota
	On
	Off
)

// Apply returns the new value of a flag that is currently cur.
func (t Toggle) Apply(cur bool) bool {
	switch t {
	case On:
		return true
	case Off:
		return false
	default:
		return !cur
	}
}

func parseToggle(s string) (Toggle, bool) {
	switch strings.ToLower(s) {
	case "", "toggle", "t":
		return Toggled, true
	case "on", "true", "enable", "yes", "1":
		return On, true
	case "off", "false", "disable", "no", "0":
		return Off, true
	}
	return 0, false
}

type TargetKind int

const (
	TargetNumber TargetKind = iota
	TargetNext
	TargetPrev
	TargetFirst
	TargetLast
	TargetEmpty
)

// WorkspaceTarget selects a workspace relative to the active one.
// Number is 1-based and only used with TargetNumber.
type WorkspaceTarget struct {
	Kind   TargetKind
	Number int
}

// Resolve returns the 0-based index of the selected workspace out of
// count, given the active index and a function that reports whether
// a workspace has no windows. It returns -1 if nothing matches.
func (t WorkspaceTarget) Resolve(active, count int, empty func(int) bool) int {
	switch t.Kind {
	case TargetNumber:
		if t.Number < 1 || t.Number > count {
			return -1
		}
		return t.Number - 1
	case TargetNext:
		return (active + 1) % count
	case TargetPrev:
		return (active - 1 + count) % count
	case TargetFirst:
		return 0
	case TargetLast:
		return count - 1
	case TargetEmpty:
		for i := range count {
			if empty(i) {
				return i
			}
		}
	}
	return -1
}

func parseTarget(s string) (WorkspaceTarget, bool) {
	switch strings.ToLower(s) {
	case "next", "n", "+1":
		return WorkspaceTarget{Kind: TargetNext}, true
	case "prev", "previous", "p", "-1":
		return WorkspaceTarget{Kind: TargetPrev}, true
	case "first", "1st":
		return WorkspaceTarget{Kind: TargetFirst}, true
	case "last":
		return WorkspaceTarget{Kind: TargetLast}, true
	case "empty", "e":
		return WorkspaceTarget{Kind: TargetEmpty}, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return WorkspaceTarget{}, false
	}
	return WorkspaceTarget{Kind: TargetNumber, Number: n}, true
}

// Action is a parsed compositor action. Which fields are meaningful
// depends on Kind.
type Action struct {
	Kind    ActionKind
	Command string
	Dir     Direction
	Toggle  Toggle
	Amount  int
	Target  WorkspaceTarget
	Theme   string
	Size    int
}

// ParseAction parses an action such as "workspace next" or
// "exec foot".
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	cmd, args, _ := strings.Cut(s, " ")
	args = strings.TrimSpace(args)

	bad := func() (Action, error) {
		return Action{}, fmt.Errorf("invalid action %q", s)
	}

	switch strings.ToLower(cmd) {
	case "exit", "quit":
		return Action{Kind: ActionExit}, nil
	case "reload", "reload_config":
		return Action{Kind: ActionReload}, nil

	case "exec", "exec_spawn", "spawn":
		if args == "" {
			return bad()
		}
		kind := ActionExec
		if !strings.EqualFold(cmd, "exec") {
			kind = ActionSpawn
		}
		return Action{Kind: kind, Command: args}, nil

	case "close", "close_window":
		return Action{Kind: ActionClose}, nil
	case "kill", "kill_window", "killactive":
		return Action{Kind: ActionKill}, nil

	case "focus", "focus_window", "move", "move_window", "movewindow", "swap", "swap_window", "swapwindow":
		kind := ActionFocus
		switch {
		case strings.HasPrefix(strings.ToLower(cmd), "move"):
			kind = ActionMove
		case strings.HasPrefix(strings.ToLower(cmd), "swap"):
			kind = ActionSwap
		}
		dir := DirNext
		if args != "" {
			var ok bool
			dir, ok = parseDirection(args)
			if !ok {
				return bad()
			}
		}
		return Action{Kind: kind, Dir: dir}, nil
	case "focus_next":
		return Action{Kind: ActionFocus, Dir: DirNext}, nil
	case "focus_prev":
		return Action{Kind: ActionFocus, Dir: DirPrev}, nil

	case "fullscreen", "togglefullscreen", "floating", "togglefloating", "maximize", "togglemaximize":
		t, ok := parseToggle(args)
		if !ok {
			return bad()
		}
		kind := ActionFullscreen
		switch strings.TrimPrefix(strings.ToLower(cmd), "toggle") {
		case "floating":
			kind = ActionFloating
		case "maximize":
			kind = ActionMaximize
		}
		return Action{Kind: kind, Toggle: t}, nil

	case "resize", "resizeactive":
		fields := strings.Fields(args)
		if len(fields) == 0 || len(fields) > 2 {
			return bad()
		}
		dir, ok := parseResizeDirection(fields[0])
		if !ok {
			return bad()
		}
		amount := 10
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[1])
			if err == nil {
				amount = n
			}
		}
		return Action{Kind: ActionResize, Dir: dir, Amount: amount}, nil

	case "workspace", "switch_workspace", "move_to_workspace", "movetoworkspace", "move_to_workspace_silent", "movetoworkspacesilent":
		target, ok := parseTarget(args)
		if !ok {
			return bad()
		}
		kind := ActionWorkspace
		switch c := strings.ToLower(cmd); {
		case strings.HasSuffix(c, "silent"):
			kind = ActionMoveToWorkspaceSilent
		case strings.HasPrefix(c, "move"):
			kind = ActionMoveToWorkspace
		}
		return Action{Kind: kind, Target: target}, nil

	case "split_horizontal", "splith":
		return Action{Kind: ActionSplitH}, nil
	case "split_vertical", "splitv":
		return Action{Kind: ActionSplitV}, nil
	case "split_toggle", "splitt":
		return Action{Kind: ActionSplitToggle}, nil

	case "cursor_theme", "setcursor":
		fields := strings.Fields(args)
		if len(fields) == 0 || len(fields) > 2 {
			return bad()
		}
		a := Action{Kind: ActionCursorTheme, Theme: fields[0]}
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return bad()
			}
			a.Size = n
		}
		return a, nil
	}

	return bad()
}
