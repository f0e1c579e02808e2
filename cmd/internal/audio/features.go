package audio

import "math"

// Feature extraction parameters. 13 cepstral coefficients summarized by
// per-coefficient mean and standard deviation give a 26-dim embedding.
const (
	NumCoefficients = 13
	EmbeddingDim    = 2 * NumCoefficients

	frameLength = 400 // 25ms at 16kHz
	frameShift  = 160 // 10ms at 16kHz
	fftSize     = 512
	numMelBands = 26
)

// FeatureExtractor computes fixed-length acoustic embeddings for speaker
// spans. Stateless apart from the precomputed window and filterbank, so a
// single instance is safe for concurrent use.
type FeatureExtractor struct {
	window  []float64
	filters [][]float64 // mel triangular filters over fftSize/2+1 bins
}

// NewFeatureExtractor 预计算汉明窗与梅尔滤波器组
func NewFeatureExtractor() *FeatureExtractor {
	window := make([]float64, frameLength)
	for i := range window {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(frameLength-1))
	}
	return &FeatureExtractor{
		window:  window,
		filters: melFilterbank(numMelBands, fftSize, CanonicalRate),
	}
}

// Extract computes the 26-dim embedding for an audio span. The span is
// resampled to 16kHz, framed, reduced to per-coefficient mean and standard
// deviation, then z-score normalized. Degenerate input (too short to frame,
// or silent) yields the zero vector, which compares with similarity 0 to
// everything.
func (f *FeatureExtractor) Extract(samples []float64, sampleRate int) []float64 {
	if sampleRate != CanonicalRate {
		samples = Resample(samples, sampleRate, CanonicalRate)
	}
	if len(samples) < frameLength || allZero(samples) {
		return make([]float64, EmbeddingDim)
	}

	numFrames := 1 + (len(samples)-frameLength)/frameShift
	coeffs := make([][]float64, 0, numFrames)
	frame := make([]float64, fftSize)
	for i := 0; i < numFrames; i++ {
		offset := i * frameShift
		for j := 0; j < frameLength; j++ {
			frame[j] = samples[offset+j] * f.window[j]
		}
		for j := frameLength; j < fftSize; j++ {
			frame[j] = 0
		}
		coeffs = append(coeffs, f.frameCepstrum(frame))
	}

	// mean and std per coefficient
	embedding := make([]float64, EmbeddingDim)
	n := float64(len(coeffs))
	for c := 0; c < NumCoefficients; c++ {
		var sum float64
		for _, fr := range coeffs {
			sum += fr[c]
		}
		mean := sum / n
		var variance float64
		for _, fr := range coeffs {
			d := fr[c] - mean
			variance += d * d
		}
		embedding[c] = mean
		embedding[NumCoefficients+c] = math.Sqrt(variance / n)
	}

	return zScoreNormalize(embedding)
}

// frameCepstrum computes NumCoefficients cepstral coefficients for one
// windowed frame: power spectrum, mel filterbank log energies, DCT-II.
func (f *FeatureExtractor) frameCepstrum(frame []float64) []float64 {
	re, im := fft(frame)
	bins := fftSize/2 + 1
	power := make([]float64, bins)
	for i := 0; i < bins; i++ {
		power[i] = re[i]*re[i] + im[i]*im[i]
	}

	logEnergies := make([]float64, numMelBands)
	for m, filter := range f.filters {
		var e float64
		for i, w := range filter {
			e += w * power[i]
		}
		logEnergies[m] = math.Log(e + 1e-10)
	}

	out := make([]float64, NumCoefficients)
	for c := 0; c < NumCoefficients; c++ {
		var sum float64
		for m := 0; m < numMelBands; m++ {
			sum += logEnergies[m] * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/float64(numMelBands))
		}
		out[c] = sum
	}
	return out
}

// zScoreNormalize subtracts the vector's own mean and divides by its own
// standard deviation, guarding against a zero deviation.
func zScoreNormalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var variance float64
	for _, x := range v {
		d := x - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(v)))
	if std < 1e-10 {
		return make([]float64, len(v))
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - mean) / std
	}
	return out
}

func allZero(samples []float64) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}

// melFilterbank builds triangular filters evenly spaced on the mel scale
// between 0 and Nyquist.
func melFilterbank(numBands, fftN, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	bins := fftN/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)
	points := make([]int, numBands+2)
	for i := range points {
		hz := melToHz(maxMel * float64(i) / float64(numBands+1))
		points[i] = int(hz * float64(fftN) / float64(sampleRate))
		if points[i] >= bins {
			points[i] = bins - 1
		}
	}

	filters := make([][]float64, numBands)
	for m := 1; m <= numBands; m++ {
		filter := make([]float64, bins)
		lo, mid, hi := points[m-1], points[m], points[m+1]
		for k := lo; k < mid; k++ {
			if mid > lo {
				filter[k] = float64(k-lo) / float64(mid-lo)
			}
		}
		for k := mid; k <= hi; k++ {
			if hi > mid {
				filter[k] = float64(hi-k) / float64(hi-mid)
			}
		}
		filters[m-1] = filter
	}
	return filters
}

// fft computes an in-place iterative radix-2 FFT of a real input whose
// length must be a power of two. Returns real and imaginary parts.
func fft(input []float64) ([]float64, []float64) {
	n := len(input)
	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, input)

	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(angle), math.Sin(angle)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			for k := 0; k < length/2; k++ {
				i, j := start+k, start+k+length/2
				tRe := re[j]*curRe - im[j]*curIm
				tIm := re[j]*curIm + im[j]*curRe
				re[j], im[j] = re[i]-tRe, im[i]-tIm
				re[i], im[i] = re[i]+tRe, im[i]+tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}

	return re, im
}
