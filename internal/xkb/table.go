// Keycode and keysym tables for the built-in US layout in us.xkb.

package xkb

// usKeys maps evdev keycodes to their unshifted and shifted keysyms
// in the built-in US layout.
var usKeys = map[uint32][2]Keysym{
	1:   {0xff1b, 0xff1b},         // ESC
	2:   {0x31, 0x21},             // AE01
	3:   {0x32, 0x40},             // AE02
	4:   {0x33, 0x23},             // AE03
	5:   {0x34, 0x24},             // AE04
	6:   {0x35, 0x25},             // AE05
	7:   {0x36, 0x5e},             // AE06
	8:   {0x37, 0x26},             // AE07
	9:   {0x38, 0x2a},             // AE08
	10:  {0x39, 0x28},             // AE09
	11:  {0x30, 0x29},             // AE10
	12:  {0x2d, 0x5f},             // AE11
	13:  {0x3d, 0x2b},             // AE12
	14:  {0xff08, 0xff08},         // BKSP
	15:  {0xff09, 0xfe20},         // TAB
	16:  {0x71, 0x51},             // AD01
	17:  {0x77, 0x57},             // AD02
	18:  {0x65, 0x45},             // AD03
	19:  {0x72, 0x52},             // AD04
	20:  {0x74, 0x54},             // AD05
	21:  {0x79, 0x59},             // AD06
	22:  {0x75, 0x55},             // AD07
	23:  {0x69, 0x49},             // AD08
	24:  {0x6f, 0x4f},             // AD09
	25:  {0x70, 0x50},             // AD10
	26:  {0x5b, 0x7b},             // AD11
	27:  {0x5d, 0x7d},             // AD12
	28:  {0xff0d, 0xff0d},         // RTRN
	29:  {0xffe3, 0xffe3},         // LCTL
	30:  {0x61, 0x41},             // AC01
	31:  {0x73, 0x53},             // AC02
	32:  {0x64, 0x44},             // AC03
	33:  {0x66, 0x46},             // AC04
	34:  {0x67, 0x47},             // AC05
	35:  {0x68, 0x48},             // AC06
	36:  {0x6a, 0x4a},             // AC07
	37:  {0x6b, 0x4b},             // AC08
	38:  {0x6c, 0x4c},             // AC09
	39:  {0x3b, 0x3a},             // AC10
	40:  {0x27, 0x22},             // AC11
	41:  {0x60, 0x7e},             // TLDE
	42:  {0xffe1, 0xffe1},         // LFSH
	43:  {0x5c, 0x7c},             // BKSL
	44:  {0x7a, 0x5a},             // AB01
	45:  {0x78, 0x58},             // AB02
	46:  {0x63, 0x43},             // AB03
	47:  {0x76, 0x56},             // AB04
	48:  {0x62, 0x42},             // AB05
	49:  {0x6e, 0x4e},             // AB06
	50:  {0x6d, 0x4d},             // AB07
	51:  {0x2c, 0x3c},             // AB08
	52:  {0x2e, 0x3e},             // AB09
	53:  {0x2f, 0x3f},             // AB10
	54:  {0xffe2, 0xffe2},         // RTSH
	55:  {0xffaa, 0xffaa},         // KPMU
	56:  {0xffe9, 0xffe9},         // LALT
	57:  {0x20, 0x20},             // SPCE
	58:  {0xffe5, 0xffe5},         // CAPS
	59:  {0xffbe, 0xffbe},         // FK01
	60:  {0xffbf, 0xffbf},         // FK02
	61:  {0xffc0, 0xffc0},         // FK03
	62:  {0xffc1, 0xffc1},         // FK04
	63:  {0xffc2, 0xffc2},         // FK05
	64:  {0xffc3, 0xffc3},         // FK06
	65:  {0xffc4, 0xffc4},         // FK07
	66:  {0xffc5, 0xffc5},         // FK08
	67:  {0xffc6, 0xffc6},         // FK09
	68:  {0xffc7, 0xffc7},         // FK10
	69:  {0xff7f, 0xff7f},         // NMLK
	70:  {0xff14, 0xff14},         // SCLK
	71:  {0xff95, 0xffb7},         // KP7
	72:  {0xff97, 0xffb8},         // KP8
	73:  {0xff9a, 0xffb9},         // KP9
	74:  {0xffad, 0xffad},         // KPSU
	75:  {0xff96, 0xffb4},         // KP4
	76:  {0xff9d, 0xffb5},         // KP5
	77:  {0xff98, 0xffb6},         // KP6
	78:  {0xffab, 0xffab},         // KPAD
	79:  {0xff9c, 0xffb1},         // KP1
	80:  {0xff99, 0xffb2},         // KP2
	81:  {0xff9b, 0xffb3},         // KP3
	82:  {0xff9e, 0xffb0},         // KP0
	83:  {0xff9f, 0xffae},         // KPDL
	87:  {0xffc8, 0xffc8},         // FK11
	88:  {0xffc9, 0xffc9},         // FK12
	96:  {0xff8d, 0xff8d},         // KPEN
	97:  {0xffe4, 0xffe4},         // RCTL
	98:  {0xffaf, 0xffaf},         // KPDV
	99:  {0xff61, 0xff61},         // PRSC
	100: {0xffea, 0xffea},         // RALT
	102: {0xff50, 0xff50},         // HOME
	103: {0xff52, 0xff52},         // UP
	104: {0xff55, 0xff55},         // PGUP
	105: {0xff51, 0xff51},         // LEFT
	106: {0xff53, 0xff53},         // RGHT
	107: {0xff57, 0xff57},         // END
	108: {0xff54, 0xff54},         // DOWN
	109: {0xff56, 0xff56},         // PGDN
	110: {0xff63, 0xff63},         // INS
	111: {0xffff, 0xffff},         // DELE
	113: {0x1008ff12, 0x1008ff12}, // MUTE
	114: {0x1008ff11, 0x1008ff11}, // VOL-
	115: {0x1008ff13, 0x1008ff13}, // VOL+
	119: {0xff13, 0xff13},         // PAUS
	125: {0xffeb, 0xffeb},         // LWIN
	126: {0xffec, 0xffec},         // RWIN
	163: {0x1008ff17, 0x1008ff17}, // I171
	164: {0x1008ff14, 0x1008ff14}, // I172
	165: {0x1008ff16, 0x1008ff16}, // I173
	166: {0x1008ff15, 0x1008ff15}, // I174
	224: {0x1008ff03, 0x1008ff03}, // I232
	225: {0x1008ff02, 0x1008ff02}, // I233
}

var keysymNames = map[string]Keysym{
	"space":                 0x20,
	"exclam":                0x21,
	"quotedbl":              0x22,
	"numbersign":            0x23,
	"dollar":                0x24,
	"percent":               0x25,
	"ampersand":             0x26,
	"apostrophe":            0x27,
	"parenleft":             0x28,
	"parenright":            0x29,
	"asterisk":              0x2a,
	"plus":                  0x2b,
	"comma":                 0x2c,
	"minus":                 0x2d,
	"period":                0x2e,
	"slash":                 0x2f,
	"0":                     0x30,
	"1":                     0x31,
	"2":                     0x32,
	"3":                     0x33,
	"4":                     0x34,
	"5":                     0x35,
	"6":                     0x36,
	"7":                     0x37,
	"8":                     0x38,
	"9":                     0x39,
	"colon":                 0x3a,
	"semicolon":             0x3b,
	"less":                  0x3c,
	"equal":                 0x3d,
	"greater":               0x3e,
	"question":              0x3f,
	"at":                    0x40,
	"A":                     0x41,
	"B":                     0x42,
	"C":                     0x43,
	"D":                     0x44,
	"E":                     0x45,
	"F":                     0x46,
	"G":                     0x47,
	"H":                     0x48,
	"I":                     0x49,
	"J":                     0x4a,
	"K":                     0x4b,
	"L":                     0x4c,
	"M":                     0x4d,
	"N":                     0x4e,
	"O":                     0x4f,
	"P":                     0x50,
	"Q":                     0x51,
	"R":                     0x52,
	"S":                     0x53,
	"T":                     0x54,
	"U":                     0x55,
	"V":                     0x56,
	"W":                     0x57,
	"X":                     0x58,
	"Y":                     0x59,
	"Z":                     0x5a,
	"bracketleft":           0x5b,
	"backslash":             0x5c,
	"bracketright":          0x5d,
	"asciicircum":           0x5e,
	"underscore":            0x5f,
	"grave":                 0x60,
	"a":                     0x61,
	"b":                     0x62,
	"c":                     0x63,
	"d":                     0x64,
	"e":                     0x65,
	"f":                     0x66,
	"g":                     0x67,
	"h":                     0x68,
	"i":                     0x69,
	"j":                     0x6a,
	"k":                     0x6b,
	"l":                     0x6c,
	"m":                     0x6d,
	"n":                     0x6e,
	"o":                     0x6f,
	"p":                     0x70,
	"q":                     0x71,
	"r":                     0x72,
	"s":                     0x73,
	"t":                     0x74,
	"u":                     0x75,
	"v":                     0x76,
	"w":                     0x77,
	"x":                     0x78,
	"y":                     0x79,
	"z":                     0x7a,
	"braceleft":             0x7b,
	"bar":                   0x7c,
	"braceright":            0x7d,
	"asciitilde":            0x7e,
	"ISO_Left_Tab":          0xfe20,
	"BackSpace":             0xff08,
	"Tab":                   0xff09,
	"Return":                0xff0d,
	"Pause":                 0xff13,
	"Scroll_Lock":           0xff14,
	"Escape":                0xff1b,
	"Home":                  0xff50,
	"Left":                  0xff51,
	"Up":                    0xff52,
	"Right":                 0xff53,
	"Down":                  0xff54,
	"Prior":                 0xff55,
	"Next":                  0xff56,
	"End":                   0xff57,
	"Print":                 0xff61,
	"Insert":                0xff63,
	"Num_Lock":              0xff7f,
	"KP_Enter":              0xff8d,
	"KP_Home":               0xff95,
	"KP_Left":               0xff96,
	"KP_Up":                 0xff97,
	"KP_Right":              0xff98,
	"KP_Down":               0xff99,
	"KP_Prior":              0xff9a,
	"KP_Next":               0xff9b,
	"KP_End":                0xff9c,
	"KP_Begin":              0xff9d,
	"KP_Insert":             0xff9e,
	"KP_Delete":             0xff9f,
	"KP_Multiply":           0xffaa,
	"KP_Add":                0xffab,
	"KP_Subtract":           0xffad,
	"KP_Decimal":            0xffae,
	"KP_Divide":             0xffaf,
	"KP_0":                  0xffb0,
	"KP_1":                  0xffb1,
	"KP_2":                  0xffb2,
	"KP_3":                  0xffb3,
	"KP_4":                  0xffb4,
	"KP_5":                  0xffb5,
	"KP_6":                  0xffb6,
	"KP_7":                  0xffb7,
	"KP_8":                  0xffb8,
	"KP_9":                  0xffb9,
	"F1":                    0xffbe,
	"F2":                    0xffbf,
	"F3":                    0xffc0,
	"F4":                    0xffc1,
	"F5":                    0xffc2,
	"F6":                    0xffc3,
	"F7":                    0xffc4,
	"F8":                    0xffc5,
	"F9":                    0xffc6,
	"F10":                   0xffc7,
	"F11":                   0xffc8,
	"F12":                   0xffc9,
	"Shift_L":               0xffe1,
	"Shift_R":               0xffe2,
	"Control_L":             0xffe3,
	"Control_R":             0xffe4,
	"Caps_Lock":             0xffe5,
	"Alt_L":                 0xffe9,
	"Alt_R":                 0xffea,
	"Super_L":               0xffeb,
	"Super_R":               0xffec,
	"Delete":                0xffff,
	"XF86MonBrightnessUp":   0x1008ff02,
	"XF86MonBrightnessDown": 0x1008ff03,
	"XF86AudioLowerVolume":  0x1008ff11,
	"XF86AudioMute":         0x1008ff12,
	"XF86AudioRaiseVolume":  0x1008ff13,
	"XF86AudioPlay":         0x1008ff14,
	"XF86AudioStop":         0x1008ff15,
	"XF86AudioPrev":         0x1008ff16,
	"XF86AudioNext":         0x1008ff17,
}
