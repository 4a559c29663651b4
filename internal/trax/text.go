package trax

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrRegionFormat = errors.New("trax: malformed region")

// ParseRegion decodes the text form of a region:
//
//	0                     special (empty) region
//	x,y,w,h               rectangle
//	x1,y1,x2,y2,x3,y3...  polygon, at least three points
//	mx,y,w,h,z,o,z,...    mask, run lengths alternating zeros and ones
func ParseRegion(s string) (*Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrRegionFormat, "empty string")
	}
	if s[0] == 'm' {
		return parseMask(s[1:])
	}

	tokens := strings.Split(s, ",")
	values := make([]float32, len(tokens))
	for i, t := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 32)
		if err != nil {
			return nil, errors.Wrapf(ErrRegionFormat, "%q: %v", s, err)
		}
		values[i] = float32(v)
	}

	switch {
	case len(values) == 1:
		return NewSpecial(int(values[0])), nil
	case len(values) == 4:
		return NewRectangle(values[0], values[1], values[2], values[3]), nil
	case len(values) >= 6 && len(values)%2 == 0:
		r := NewPolygon(len(values) / 2)
		for i := 0; i < len(values)/2; i++ {
			r.SetPolygonPoint(i, values[2*i], values[2*i+1])
		}
		return r, nil
	}
	return nil, errors.Wrapf(ErrRegionFormat, "%q: %d values", s, len(values))
}

func parseMask(s string) (*Region, error) {
	tokens := strings.Split(s, ",")
	if len(tokens) < 4 {
		return nil, errors.Wrapf(ErrRegionFormat, "mask header %q", s)
	}
	values := make([]int, len(tokens))
	for i, t := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || v < 0 {
			return nil, errors.Wrapf(ErrRegionFormat, "mask value %q", t)
		}
		values[i] = v
	}

	if !MaskFits(values[2], values[3]) {
		return nil, errors.Wrapf(ErrRegionFormat, "mask %dx%d larger than %d pixels", values[2], values[3], MaxMaskPixels)
	}
	r := NewMask(values[0], values[1], values[2], values[3])
	data := r.MaskData()
	offset := 0
	for i, run := range values[4:] {
		if offset+run > len(data) {
			return nil, errors.Wrapf(ErrRegionFormat, "mask runs exceed %dx%d", values[2], values[3])
		}
		if i%2 == 1 {
			for j := offset; j < offset+run; j++ {
				data[j] = 1
			}
		}
		offset += run
	}
	return r, nil
}

// String encodes the region in the form accepted by ParseRegion.
func (r *Region) String() string {
	var b strings.Builder
	switch r.kind {
	case KindRectangle:
		writeFloats(&b, r.x, r.y, r.width, r.height)
	case KindPolygon:
		for i, p := range r.points {
			if i > 0 {
				b.WriteByte(',')
			}
			writeFloats(&b, p.X, p.Y)
		}
	case KindMask:
		b.WriteByte('m')
		writeInts(&b, r.maskX, r.maskY, r.maskWidth, r.maskHeight)
		for _, run := range runLengths(r.mask) {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(run))
		}
	default:
		b.WriteString(strconv.Itoa(r.code))
	}
	return b.String()
}

// runLengths encodes data as alternating runs of zeros and ones, always
// starting with a (possibly empty) run of zeros.
func runLengths(data []byte) []int {
	if len(data) == 0 {
		return nil
	}
	var runs []int
	current := byte(0)
	count := 0
	for _, v := range data {
		if v != 0 {
			v = 1
		}
		if v != current {
			runs = append(runs, count)
			current = v
			count = 0
		}
		count++
	}
	return append(runs, count)
}

func writeFloats(b *strings.Builder, values ...float32) {
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
}

func writeInts(b *strings.Builder, values ...int) {
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
