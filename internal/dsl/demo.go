package dsl

// Demo is the built-in piece drafted when no block or DSL file is given. It
// exercises the pipeline end to end.
const Demo = `PIECE front_panel_A
MOVE 0,0
LINE 0,520
LINE 140,520
LINE 140,0
CLOSE
NOTCH 20,520 "CF hem"
GRAIN 30,20 -> 30,300
SA 8
END
`
