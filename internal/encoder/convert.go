package encoder

import (
	"runtime"
	"sync"
	"unsafe"

	ffmpeg "github.com/csnewman/ffmpeg-go"
)

// Fixed-point BT.601 coefficients scaled by 65536
const (
	yr = 19595 // 0.299
	yg = 38470 // 0.587
	yb = 7471  // 0.114

	ur = -11076 // -0.169
	ug = -21692 // -0.331
	ub = 32768  // 0.500

	vr = 32768  // 0.500
	vg = -27460 // -0.419
	vb = -5308  // -0.081
)

// convertRGBAToYUV writes packed RGBA into the planes of a YUV420P frame.
// Rows are split across CPUs; chroma is sampled from the top-left pixel of
// each 2x2 block.
func convertRGBAToYUV(rgba []byte, yuvFrame *ffmpeg.AVFrame, width, height int) {
	planes := yuvPlanes{
		y:       unsafe.Pointer(yuvFrame.Data().Get(0)),
		u:       unsafe.Pointer(yuvFrame.Data().Get(1)),
		v:       unsafe.Pointer(yuvFrame.Data().Get(2)),
		yStride: int(yuvFrame.Linesize().Get(0)),
		uStride: int(yuvFrame.Linesize().Get(1)),
		vStride: int(yuvFrame.Linesize().Get(2)),
	}

	workers := runtime.NumCPU()
	// Keep each worker's band on an even row so chroma rows are not shared
	rowsPerWorker := (height/workers + 1) &^ 1
	if rowsPerWorker < 2 {
		rowsPerWorker = 2
	}

	var wg sync.WaitGroup
	for startY := 0; startY < height; startY += rowsPerWorker {
		endY := min(startY+rowsPerWorker, height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			planes.convertRows(rgba, width, startY, endY)
		}()
	}
	wg.Wait()
}

type yuvPlanes struct {
	y, u, v                   unsafe.Pointer
	yStride, uStride, vStride int
}

func (p yuvPlanes) convertRows(rgba []byte, width, startY, endY int) {
	for y := startY; y < endY; y++ {
		yRow := unsafe.Add(p.y, y*p.yStride)
		idx := y * width * 4

		for x := 0; x < width; x++ {
			r := int(rgba[idx])
			g := int(rgba[idx+1])
			b := int(rgba[idx+2])
			idx += 4

			*(*uint8)(unsafe.Add(yRow, x)) = uint8((yr*r + yg*g + yb*b) >> 16)

			if (y&1) == 0 && (x&1) == 0 {
				uVal := ((ur*r + ug*g + ub*b) >> 16) + 128
				vVal := ((vr*r + vg*g + vb*b) >> 16) + 128

				uvY, uvX := y>>1, x>>1
				*(*uint8)(unsafe.Add(p.u, uvY*p.uStride+uvX)) = clampUint8(uVal)
				*(*uint8)(unsafe.Add(p.v, uvY*p.vStride+uvX)) = clampUint8(vVal)
			}
		}
	}
}

func clampUint8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
