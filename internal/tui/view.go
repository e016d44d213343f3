package tui

// logView holds the rendered scrollback and the viewport position.
// offset counts lines scrolled up from the tail; zero means the view
// follows the newest entry.
type logView struct {
	lines  []string
	max    int
	offset int
}

func newLogView(max int) *logView {
	if max <= 0 {
		max = 2000
	}
	return &logView{max: max}
}

func (v *logView) append(line string) {
	v.lines = append(v.lines, line)
	if len(v.lines) > v.max {
		drop := len(v.lines) - v.max
		v.lines = v.lines[drop:]
		if v.offset > 0 {
			v.offset -= drop
			if v.offset < 0 {
				v.offset = 0
			}
		}
	}
}

func (v *logView) scrollUp(n int) {
	v.offset += n
	if max := len(v.lines); v.offset > max {
		v.offset = max
	}
}

func (v *logView) scrollDown(n int) {
	v.offset -= n
	if v.offset < 0 {
		v.offset = 0
	}
}

func (v *logView) follow() {
	v.offset = 0
}

func (v *logView) following() bool {
	return v.offset == 0
}

// visible returns the h lines ending at the viewport position.
func (v *logView) visible(h int) []string {
	if h <= 0 {
		return nil
	}

	end := len(v.lines) - v.offset
	if end < 0 {
		end = 0
	}
	start := end - h
	if start < 0 {
		start = 0
	}
	return v.lines[start:end]
}

// inputLine is the single-line command editor at the bottom of the view.
type inputLine struct {
	runes  []rune
	cursor int
}

func (in *inputLine) insert(r rune) {
	in.runes = append(in.runes, 0)
	copy(in.runes[in.cursor+1:], in.runes[in.cursor:])
	in.runes[in.cursor] = r
	in.cursor++
}

func (in *inputLine) backspace() {
	if in.cursor == 0 {
		return
	}
	in.runes = append(in.runes[:in.cursor-1], in.runes[in.cursor:]...)
	in.cursor--
}

func (in *inputLine) left() {
	if in.cursor > 0 {
		in.cursor--
	}
}

func (in *inputLine) right() {
	if in.cursor < len(in.runes) {
		in.cursor++
	}
}

func (in *inputLine) clear() {
	in.runes = in.runes[:0]
	in.cursor = 0
}

// submit returns the current text and resets the editor.
func (in *inputLine) submit() string {
	text := string(in.runes)
	in.clear()
	return text
}

func (in *inputLine) String() string {
	return string(in.runes)
}
