package source

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/require"

	"stackview/internal/models"
)

// writeFrame saves a constant gray PNG of the given size
func writeFrame(t *testing.T, path string, width, height int, value uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// fitsCube encodes data as a FITS primary image with the given axes
func fitsCube(t *testing.T, bitpix int, axes []int, data interface{}, cards ...fitsio.Card) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	require.NoError(t, err)

	im := fitsio.NewImage(bitpix, axes)
	if len(cards) > 0 {
		require.NoError(t, im.Header().Append(cards...))
	}
	require.NoError(t, im.Write(data))
	require.NoError(t, f.Write(im))
	require.NoError(t, im.Close())
	require.NoError(t, f.Close())
	return &buf
}

// tiffStack encodes uncompressed little-endian grayscale pages of the
// given bit depth (8 or 16), one IFD per page
func tiffStack(t *testing.T, bits int, sizes [][2]int, pages [][]int) []byte {
	t.Helper()
	require.Len(t, sizes, len(pages))

	const entries = 9
	le := binary.LittleEndian
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8))

	for i, page := range pages {
		width, height := sizes[i][0], sizes[i][1]
		require.Len(t, page, width*height)

		ifd := uint32(buf.Len())
		dataOffset := ifd + 2 + entries*12 + 4
		byteCount := uint32(width * height * bits / 8)
		next := dataOffset + byteCount + byteCount%2
		if i == len(pages)-1 {
			next = 0
		}

		binary.Write(&buf, le, uint16(entries))
		for _, e := range [entries][3]uint32{
			{256, 3, uint32(width)},  // ImageWidth
			{257, 3, uint32(height)}, // ImageLength
			{258, 3, uint32(bits)},   // BitsPerSample
			{259, 3, 1},              // Compression: none
			{262, 3, 1},              // Photometric: black is zero
			{273, 4, dataOffset},     // StripOffsets
			{277, 3, 1},              // SamplesPerPixel
			{278, 4, uint32(height)}, // RowsPerStrip
			{279, 4, byteCount},      // StripByteCounts
		} {
			binary.Write(&buf, le, uint16(e[0]))
			binary.Write(&buf, le, uint16(e[1]))
			binary.Write(&buf, le, uint32(1))
			binary.Write(&buf, le, e[2])
		}
		binary.Write(&buf, le, next)

		for _, v := range page {
			if bits == 8 {
				buf.WriteByte(uint8(v))
			} else {
				binary.Write(&buf, le, uint16(v))
			}
		}
		if byteCount%2 == 1 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

func TestLoadTIFFStack16(t *testing.T) {
	const width, height, frames = 3, 2, 4
	sizes := make([][2]int, frames)
	pages := make([][]int, frames)
	for f := range pages {
		sizes[f] = [2]int{width, height}
		pages[f] = make([]int, width*height)
		for i := range pages[f] {
			pages[f][i] = 1000*f + i
		}
	}

	stack, err := LoadTIFF(bytes.NewReader(tiffStack(t, 16, sizes, pages)))
	require.NoError(t, err)
	require.Equal(t, frames, stack.Frames())
	require.Equal(t, height, stack.Rows())
	require.Equal(t, width, stack.Cols())
	require.Equal(t, models.Uint16, stack.Kind())

	// frame 2, row 1, col 2 is sample 5 of the third page
	require.Equal(t, 2005.0, stack.At(2, 1, 2))
	require.Equal(t, 3000.0, stack.At(3, 0, 0))
}

func TestLoadTIFFStack8(t *testing.T) {
	sizes := [][2]int{{3, 3}, {3, 3}}
	pages := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8},
		{9, 10, 11, 12, 13, 14, 15, 16, 255},
	}

	stack, err := LoadTIFF(bytes.NewReader(tiffStack(t, 8, sizes, pages)))
	require.NoError(t, err)
	require.Equal(t, 2, stack.Frames())
	require.Equal(t, models.Uint8, stack.Kind())
	require.Equal(t, 255.0, stack.At(1, 2, 2))
	require.Equal(t, 4.0, stack.At(0, 1, 1))
}

func TestLoadTIFFPageSizeMismatch(t *testing.T) {
	sizes := [][2]int{{2, 2}, {3, 2}}
	pages := [][]int{{1, 2, 3, 4}, {1, 2, 3, 4, 5, 6}}

	_, err := LoadTIFF(bytes.NewReader(tiffStack(t, 16, sizes, pages)))
	require.ErrorIs(t, err, ErrFrameSize)
}

func TestLoadFrameDirOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "frame_10.png"), 3, 2, 300)
	writeFrame(t, filepath.Join(dir, "frame_2.png"), 3, 2, 200)
	writeFrame(t, filepath.Join(dir, "frame_1.png"), 3, 2, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	stack, err := LoadFrameDir(dir)
	require.NoError(t, err)
	require.Equal(t, 3, stack.Frames())
	require.Equal(t, 2, stack.Rows())
	require.Equal(t, 3, stack.Cols())
	require.Equal(t, models.Uint16, stack.Kind())

	require.Equal(t, 100.0, stack.At(0, 1, 2))
	require.Equal(t, 200.0, stack.At(1, 0, 0))
	require.Equal(t, 300.0, stack.At(2, 1, 1))
}

func TestLoadFrameDirErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := LoadFrameDir(empty)
	require.ErrorIs(t, err, ErrNoFrames)

	mixed := t.TempDir()
	writeFrame(t, filepath.Join(mixed, "a1.png"), 4, 4, 1)
	writeFrame(t, filepath.Join(mixed, "a2.png"), 4, 5, 1)
	_, err = LoadFrameDir(mixed)
	require.ErrorIs(t, err, ErrFrameSize)
}

func TestExtractNumber(t *testing.T) {
	require.Equal(t, 12, extractNumber("/data/slice_012.jpg"))
	require.Equal(t, 0, extractNumber("frame.png"))
}

func TestLoadFITSUnsigned16(t *testing.T) {
	const cols, rows, frames = 3, 2, 4
	raw := make([]int16, cols*rows*frames)
	for i := range raw {
		// unsigned value 1000*i stored with the BZERO=32768 convention
		raw[i] = int16(int32(1000*i) - 32768)
	}
	buf := fitsCube(t, 16, []int{cols, rows, frames}, raw, fitsio.Card{Name: "BZERO", Value: 32768})

	stack, err := LoadFITS(buf)
	require.NoError(t, err)
	require.Equal(t, frames, stack.Frames())
	require.Equal(t, rows, stack.Rows())
	require.Equal(t, cols, stack.Cols())
	require.Equal(t, models.Uint16, stack.Kind())

	// frame 2, row 1, col 0 is sample index 2*6 + 3 = 15
	require.Equal(t, 15000.0, stack.At(2, 1, 0))
}

func TestLoadFITSFloatImage(t *testing.T) {
	data := []float64{0.5, -1.25, 3, 8}
	buf := fitsCube(t, -64, []int{2, 2}, data)

	stack, err := LoadFITS(buf)
	require.NoError(t, err)
	require.Equal(t, 1, stack.Frames())
	require.Equal(t, models.Float64, stack.Kind())
	require.Equal(t, data, stack.Frame(0))
}

func TestLoadFITSRejectsOneAxis(t *testing.T) {
	buf := fitsCube(t, -64, []int{4}, []float64{1, 2, 3, 4})
	_, err := LoadFITS(buf)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	cube := fitsCube(t, -32, []int{2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	fitsPath := filepath.Join(dir, "cube.fits")
	require.NoError(t, os.WriteFile(fitsPath, cube.Bytes(), 0644))

	stack, err := Open(fitsPath)
	require.NoError(t, err)
	require.Equal(t, 2, stack.Frames())
	require.Equal(t, models.Float32, stack.Kind())

	tiffPath := filepath.Join(dir, "stack.tif")
	tiffData := tiffStack(t, 16, [][2]int{{2, 2}, {2, 2}, {2, 2}}, [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})
	require.NoError(t, os.WriteFile(tiffPath, tiffData, 0644))

	stack, err = Open(tiffPath)
	require.NoError(t, err)
	require.Equal(t, 3, stack.Frames())
	require.Equal(t, 12.0, stack.At(2, 1, 1))

	framePath := filepath.Join(dir, "single.png")
	writeFrame(t, framePath, 5, 3, 7)
	stack, err = Open(framePath)
	require.NoError(t, err)
	require.Equal(t, 1, stack.Frames())
	require.Equal(t, 3, stack.Rows())

	// the directory holds a single png frame; the fits and tiff files are ignored
	stack, err = Open(dir)
	require.NoError(t, err)
	require.Equal(t, 1, stack.Frames())

	other := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(other, []byte("1,2"), 0644))
	_, err = Open(other)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(filepath.Join(dir, "missing.fits"))
	require.Error(t, err)
}
