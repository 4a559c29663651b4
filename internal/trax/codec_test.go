package trax

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRawRoundTrip(t *testing.T) {
	raw := Raw{Verb: VerbInitialize, Args: []string{`/tmp/a "quoted".png`, `back\slash`, "10,10,20,20", "line\nbreak"}}
	line := raw.String()
	require.True(t, strings.HasPrefix(line, "@@TRAX:initialize "))

	got, err := ParseRaw(line + "\n")
	require.NoError(t, err)
	if diff := cmp.Diff(raw, got); diff != "" {
		t.Fatalf("ParseRaw mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRawErrors(t *testing.T) {
	for _, line := range []string{
		"hello",
		"@@TRAX:",
		`@@TRAX:frame unquoted`,
		`@@TRAX:frame "open`,
	} {
		_, err := ParseRaw(line)
		require.True(t, errors.Is(err, ErrMessageFormat), line)
	}
}

func TestParseRawNoArgs(t *testing.T) {
	raw, err := ParseRaw("noise before @@TRAX:quit\r\n")
	require.NoError(t, err)
	require.Equal(t, Raw{Verb: VerbQuit}, raw)
}

func TestHelloRoundTrip(t *testing.T) {
	m := Metadata{
		Region:      KindPolygon,
		Channels:    ChannelsRGBD,
		MultiObject: true,
		Custom:      Properties{"vot": "go"},
	}
	raw := EncodeHello(m)
	require.Contains(t, raw.Args, "trax.channels=color,depth")
	require.Contains(t, raw.Args, "trax.version=4")

	got, err := DecodeHello(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("DecodeHello mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	msg := &Message{
		Kind: MessageInitialize,
		Images: map[Channel]string{
			ChannelColor: "/seq/color/00000001.jpg",
			ChannelIR:    "/seq/ir/00000001.png",
		},
		Objects: []Object{
			{Region: NewRectangle(1, 2, 3, 4), Properties: Properties{"name": "car"}},
			{Region: NewRectangle(5, 6, 7, 8)},
		},
	}
	raw := EncodeRequest(msg, ChannelsRGBT)
	require.Equal(t, []string{"/seq/color/00000001.jpg", "/seq/ir/00000001.png", "1,2,3,4", "name=car", "5,6,7,8"}, raw.Args)

	got, err := DecodeRequest(raw, ChannelsRGBT)
	require.NoError(t, err)
	require.Equal(t, MessageInitialize, got.Kind)
	require.Equal(t, msg.Images, got.Images)
	require.Len(t, got.Objects, 2)
	require.Equal(t, "1,2,3,4", got.Objects[0].Region.String())
	require.Equal(t, Properties{"name": "car"}, got.Objects[0].Properties)
	require.Nil(t, got.Objects[1].Properties)
}

func TestDecodeRequestErrors(t *testing.T) {
	testCases := []struct {
		desc string
		raw  Raw
	}{
		{desc: "unknown verb", raw: Raw{Verb: "bogus"}},
		{desc: "missing images", raw: Raw{Verb: VerbFrame, Args: []string{"color.png"}}},
		{desc: "property first", raw: Raw{Verb: VerbInitialize, Args: []string{"c.png", "d.png", "k=v"}}},
		{desc: "bad region", raw: Raw{Verb: VerbInitialize, Args: []string{"c.png", "d.png", "1,2"}}},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := DecodeRequest(tC.raw, ChannelsRGBD)
			require.Error(t, err)
		})
	}
}

func TestStateNilRegion(t *testing.T) {
	raw := EncodeState([]Object{{}, {Region: NewRectangle(1, 1, 1, 1), Properties: Properties{"confidence": "0.5"}}})
	require.Equal(t, []string{"0", "1,1,1,1", "confidence=0.5"}, raw.Args)

	objects, err := DecodeState(raw)
	require.NoError(t, err)
	require.Equal(t, KindSpecial, objects[0].Region.Kind())
	require.Equal(t, float32(0.5), objects[1].Properties.GetFloat("confidence", 0))
}

func TestConnSkipsNoise(t *testing.T) {
	in := strings.NewReader("loading model...\n@@TRAX:frame \"a.png\"\n")
	out := &bytes.Buffer{}
	c := NewConn(in, out)

	raw, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, Raw{Verb: VerbFrame, Args: []string{"a.png"}}, raw)

	_, err = c.Read()
	require.Equal(t, io.EOF, err)

	require.NoError(t, c.Write(Raw{Verb: VerbQuit}))
	require.Equal(t, "@@TRAX:quit\n", out.String())
}

func TestParseChannelMode(t *testing.T) {
	testCases := []struct {
		in   string
		want ChannelMode
	}{
		{"", ChannelsColor},
		{"color", ChannelsColor},
		{"rgbd", ChannelsRGBD},
		{"color,depth", ChannelsRGBD},
		{"color,ir", ChannelsRGBT},
		{"ir", ChannelsIR},
	}
	for _, tC := range testCases {
		got, err := ParseChannelMode(tC.in)
		require.NoError(t, err, tC.in)
		require.Equal(t, tC.want, got, tC.in)
	}
	_, err := ParseChannelMode("depth")
	require.Error(t, err)
}
