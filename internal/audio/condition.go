package audio

import "math"

const (
	// PreEmphasis - коэффициент фильтра предыскажения.
	PreEmphasis = 0.97
	// TargetPeak - пик кадра после нормализации усиления (10% полной шкалы).
	TargetPeak = 0.1 * math.MaxInt16
)

// Condition нормализует усиление кадра и применяет фильтр предыскажения.
//
// Пик кадра приводится к TargetPeak, чтобы уровень микрофона не влиял на VAD.
// Память фильтра (last) обнуляется в начале каждого кадра и хранит
// исходный, а не отфильтрованный предыдущий сэмпл. Тихий кадр остаётся нулевым.
//
// Результат используется и для классификации, и для записи в файл.
func Condition(frame Frame) Frame {
	var peak float32
	for _, s := range frame {
		a := float32(s)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}

	gain := float32(1.0)
	if peak > 0 {
		gain = TargetPeak / peak
	}

	out := make(Frame, len(frame))
	var last float32
	for i, s := range frame {
		x := float32(s)
		out[i] = ClampI16((x - PreEmphasis*last) * gain)
		last = x
	}
	return out
}

// Peak возвращает максимальную амплитуду кадра.
func Peak(frame Frame) int {
	peak := 0
	for _, s := range frame {
		a := int(s)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}

// SilenceDB - уровень полностью тихого кадра.
const SilenceDB = -96.0

// LevelDB возвращает RMS кадра в dBFS, не ниже SilenceDB.
func LevelDB(frame Frame) float64 {
	if len(frame) == 0 {
		return SilenceDB
	}
	var sum float64
	for _, s := range frame {
		v := float64(s) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	if rms == 0 {
		return SilenceDB
	}
	return math.Max(20*math.Log10(rms), SilenceDB)
}
