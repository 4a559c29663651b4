package folder

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestFolderSession(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"frames_color.txt": "00000001.jpg\n00000002.jpg\n/abs/00000003.jpg\n",
		"query_a.txt":      "0\n10,10,20,20\nname=car\n",
		"query_b.txt":      "0\n50,50,5,5\n",
	})

	tr := New(dir)
	s, err := session.Start(tr, session.WithMultiObject(true))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tr.IDs())

	first, err := s.InitialFrame()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "00000001.jpg"), first.Color())

	for i, want := range []string{filepath.Join(dir, "00000002.jpg"), "/abs/00000003.jpg"} {
		frame, err := s.NextFrame()
		require.NoError(t, err)
		require.Equal(t, want, frame.Color())
		x := float32(11 + i)
		require.NoError(t, s.Report([]region.Region{
			region.Rectangle{X: x, Y: 10, Width: 20, Height: 20},
			nil,
		}))
	}
	_, err = s.NextFrame()
	require.True(t, errors.Is(err, session.ErrSequenceEnd))
	require.NoError(t, s.EndReason())

	out, err := os.ReadFile(filepath.Join(dir, "output_a.txt"))
	require.NoError(t, err)
	require.Equal(t, "10,10,20,20\n11,10,20,20\n12,10,20,20\n", string(out))
	out, err = os.ReadFile(filepath.Join(dir, "output_b.txt"))
	require.NoError(t, err)
	require.Equal(t, "50,50,5,5\n0\n0\n", string(out))
}

func TestFolderProperties(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"frames_color.txt": "1.jpg\n",
		"frames_depth.txt": "1.png\n",
		"query_1.txt":      "0\n1,2,3,4\nname=car\nnoise\n",
	})
	tr := New(dir)
	require.NoError(t, tr.Setup(trax.Metadata{Region: trax.KindRectangle, Channels: trax.ChannelsRGBD}))
	msg, err := tr.Wait()
	require.NoError(t, err)
	require.Equal(t, trax.MessageInitialize, msg.Kind)
	require.Equal(t, filepath.Join(dir, "1.png"), msg.Images[trax.ChannelDepth])
	require.Equal(t, trax.Properties{"name": "car"}, msg.Objects[0].Properties)

	msg, err = tr.Wait()
	require.NoError(t, err)
	require.Equal(t, trax.MessageQuit, msg.Kind)
}

// stripedMask is a single row mask of alternating pixels; its text form is
// about 2*width bytes long.
func stripedMask(width int) string {
	var b strings.Builder
	b.WriteString("m0,0," + strconv.Itoa(width) + ",1")
	for i := 0; i < width; i++ {
		b.WriteString(",1")
	}
	return b.String()
}

func TestFolderLongQueryLine(t *testing.T) {
	mask := stripedMask(50000)
	require.Greater(t, len(mask), 64*1024)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"frames_color.txt": "1.jpg\n",
		"query_1.txt":      "0\n" + mask + "\n",
	})
	tr := New(dir)
	require.NoError(t, tr.Setup(trax.Metadata{Region: trax.KindMask}))
	msg, err := tr.Wait()
	require.NoError(t, err)
	require.Equal(t, trax.MessageInitialize, msg.Kind)
	require.Len(t, msg.Objects, 1)
	_, _, w, h := msg.Objects[0].Region.MaskHeader()
	require.Equal(t, []int{50000, 1}, []int{w, h})
	require.Equal(t, mask, msg.Objects[0].Region.String())
}

func TestFolderLayoutErrors(t *testing.T) {
	testCases := []struct {
		desc  string
		files map[string]string
		md    trax.Metadata
	}{
		{
			desc:  "missing frames",
			files: map[string]string{"query_1.txt": "0\n1,2,3,4\n"},
		},
		{
			desc: "missing depth frames",
			files: map[string]string{
				"frames_color.txt": "1.jpg\n",
				"query_1.txt":      "0\n1,2,3,4\n",
			},
			md: trax.Metadata{Channels: trax.ChannelsRGBD},
		},
		{
			desc: "uneven channels",
			files: map[string]string{
				"frames_color.txt": "1.jpg\n2.jpg\n",
				"frames_ir.txt":    "1.png\n",
				"query_1.txt":      "0\n1,2,3,4\n",
			},
			md: trax.Metadata{Channels: trax.ChannelsRGBT},
		},
		{
			desc:  "no queries",
			files: map[string]string{"frames_color.txt": "1.jpg\n"},
		},
		{
			desc: "offset",
			files: map[string]string{
				"frames_color.txt": "1.jpg\n",
				"query_1.txt":      "3\n1,2,3,4\n",
			},
		},
		{
			desc: "wrong region kind",
			files: map[string]string{
				"frames_color.txt": "1.jpg\n",
				"query_1.txt":      "0\n0,0,1,0,1,1\n",
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tC.files)
			md := tC.md
			md.Region = trax.KindRectangle
			err := New(dir).Setup(md)
			require.True(t, errors.Is(err, ErrLayout), "got %v", err)
		})
	}
}

func TestFolderTeardownOnce(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"frames_color.txt": "1.jpg\n",
		"query_x.txt":      "0\nm0,0,2,1,1,1\n",
	})
	tr := New(dir)
	require.NoError(t, tr.Setup(trax.Metadata{Region: trax.KindMask}))
	msg, err := tr.Wait()
	require.NoError(t, err)
	require.NoError(t, tr.Reply(msg.Objects))
	require.NoError(t, tr.Teardown())

	name := filepath.Join(dir, "output_x.txt")
	out, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "m0,0,2,1,1,1", strings.TrimSpace(string(out)))

	require.NoError(t, os.Remove(name))
	require.NoError(t, tr.Teardown())
	_, err = os.Stat(name)
	require.True(t, os.IsNotExist(err))
	require.True(t, errors.Is(tr.Reply(nil), trax.ErrClosed))
}
