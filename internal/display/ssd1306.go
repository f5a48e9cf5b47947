package display

import "fmt"

// I2CBus is the multi-byte write primitive the panel needs.
type I2CBus interface {
	Write(addr uint8, data []byte) error
}

// SSD1306 is a minimal driver for the 128x32 OLED status panel: init,
// clear and centered text, which is all this system renders.
type SSD1306 struct {
	bus    I2CBus
	addr   uint8 // 7-bit
	width  int
	height int
}

// Control byte prefixes: command stream vs. display data stream.
const (
	ctrlCommand = 0x00
	ctrlData    = 0x40
)

// NewSSD1306 initializes the panel at the given 7-bit address.
func NewSSD1306(bus I2CBus, addr uint8) (*SSD1306, error) {
	d := &SSD1306{bus: bus, addr: addr, width: 128, height: 32}

	init := []byte{
		0xAE, // display off
		0xD5, 0x80, // clock divide
		0xA8, 0x1F, // multiplex ratio: 32 rows
		0xD3, 0x00, // display offset
		0x40, // start line 0
		0x8D, 0x14, // charge pump on
		0x20, 0x00, // horizontal addressing
		0xA1, // segment remap
		0xC8, // COM scan direction remapped
		0xDA, 0x02, // COM pins for 128x32
		0x81, 0xFF, // max contrast
		0xD9, 0xF1, // precharge
		0xDB, 0x40, // VCOMH deselect
		0xA4, // resume from RAM
		0xA6, // normal (not inverted)
		0xAF, // display on
	}
	if err := d.commands(init...); err != nil {
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	if err := d.Clear(); err != nil {
		return nil, fmt.Errorf("ssd1306 clear: %w", err)
	}
	return d, nil
}

// Clear blanks the panel.
func (d *SSD1306) Clear() error {
	return d.flush(make([]byte, d.width*d.height/8))
}

// textScale doubles the 5x7 base font; at 128x32 that fits 10 characters,
// enough for every label this system shows.
const textScale = 2

// ShowText draws text centered on the panel.
func (d *SSD1306) ShowText(text string) error {
	buf := make([]byte, d.width*d.height/8)

	glyphW := (fontWidth + 1) * textScale
	glyphH := fontHeight * textScale

	// Truncate rather than wrap; labels never approach the limit.
	maxChars := d.width / glyphW
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	x0 := (d.width - len(text)*glyphW) / 2
	y0 := (d.height - glyphH) / 2

	for i := 0; i < len(text); i++ {
		d.drawGlyph(buf, x0+i*glyphW, y0, text[i])
	}
	return d.flush(buf)
}

// drawGlyph renders one scaled font glyph into the page buffer.
func (d *SSD1306) drawGlyph(buf []byte, x0, y0 int, ch byte) {
	if ch < 0x20 || ch > 0x7E {
		ch = '?'
	}
	glyph := font5x7[ch-0x20]

	for col := 0; col < fontWidth; col++ {
		bits := glyph[col]
		for row := 0; row < fontHeight; row++ {
			if bits&(1<<row) == 0 {
				continue
			}
			for sx := 0; sx < textScale; sx++ {
				for sy := 0; sy < textScale; sy++ {
					d.setPixel(buf, x0+col*textScale+sx, y0+row*textScale+sy)
				}
			}
		}
	}
}

func (d *SSD1306) setPixel(buf []byte, x, y int) {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		return
	}
	buf[(y/8)*d.width+x] |= 1 << (y % 8)
}

// flush writes a full framebuffer after resetting the addressing window.
func (d *SSD1306) flush(buf []byte) error {
	window := []byte{
		0x21, 0x00, byte(d.width - 1), // column range
		0x22, 0x00, byte(d.height/8 - 1), // page range
	}
	if err := d.commands(window...); err != nil {
		return err
	}
	return d.bus.Write(d.addr, append([]byte{ctrlData}, buf...))
}

func (d *SSD1306) commands(cmds ...byte) error {
	return d.bus.Write(d.addr, append([]byte{ctrlCommand}, cmds...))
}
