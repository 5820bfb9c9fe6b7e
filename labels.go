package main

import "strconv"

// Labeler hands out construct ids and tracks the loops that break and
// continue refer to. Conditionals (if, ternary) and loops (while, for,
// do-while) draw from separate counters.
type Labeler struct {
	nextCond int
	nextLoop int
	loops    []int
}

func NewLabeler() *Labeler {
	return &Labeler{}
}

func (l *Labeler) NewCond() int {
	id := l.nextCond
	l.nextCond++
	return id
}

func (l *Labeler) NewLoop() int {
	id := l.nextLoop
	l.nextLoop++
	return id
}

// EnterLoop makes id the target of break and continue until ExitLoop.
func (l *Labeler) EnterLoop(id int) {
	l.loops = append(l.loops, id)
}

func (l *Labeler) ExitLoop() {
	if len(l.loops) == 0 {
		panic("ExitLoop called outside a loop")
	}
	l.loops = l.loops[:len(l.loops)-1]
}

func (l *Labeler) BreakTarget() (string, error) {
	if len(l.loops) == 0 {
		return "", semErr(ErrBreakOutsideLoop, Pos{}, "break statement not within a loop")
	}
	return AfterLoopLabel(l.loops[len(l.loops)-1]), nil
}

func (l *Labeler) ContinueTarget() (string, error) {
	if len(l.loops) == 0 {
		return "", semErr(ErrContinueOutsideLoop, Pos{}, "continue statement not within a loop")
	}
	return ContinueLoopLabel(l.loops[len(l.loops)-1]), nil
}

func ElseLabel(id int) string         { return ".else" + strconv.Itoa(id) }
func AfterCondLabel(id int) string    { return ".afterCond" + strconv.Itoa(id) }
func BeforeLoopLabel(id int) string   { return ".beforeLoop" + strconv.Itoa(id) }
func ContinueLoopLabel(id int) string { return ".continueLoop" + strconv.Itoa(id) }
func AfterLoopLabel(id int) string    { return ".afterLoop" + strconv.Itoa(id) }
func ExitLabel(funcName string) string {
	return ".exit." + funcName
}
