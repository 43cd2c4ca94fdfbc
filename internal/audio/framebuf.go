package audio

// FrameSize - количество сэмплов в кадре (фиксированный размер блока Silero при 16kHz).
const FrameSize = 512

// Frame - кадр из ровно FrameSize нормализованных сэмплов.
type Frame []int16

// FrameBuffer накапливает сэмплы и выдаёт кадры фиксированного размера в порядке поступления.
// Устройство отдаёт блоки произвольного размера, поэтому после каждого Push
// нужно вызывать TakeFrame до тех пор, пока он не вернёт false.
//
// Не потокобезопасен: принадлежит одному контексту захвата.
type FrameBuffer struct {
	buf  []int16
	head int
}

// NewFrameBuffer создаёт буфер с запасом на несколько кадров.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{buf: make([]int16, 0, FrameSize*4)}
}

// Push дописывает сэмплы в конец очереди.
func (b *FrameBuffer) Push(samples []int16) {
	b.compact()
	b.buf = append(b.buf, samples...)
}

// TakeFrame забирает самые старые FrameSize сэмплов, если они есть.
// Возвращённый кадр не разделяет память с буфером.
func (b *FrameBuffer) TakeFrame() (Frame, bool) {
	if b.Len() < FrameSize {
		return nil, false
	}
	frame := make(Frame, FrameSize)
	copy(frame, b.buf[b.head:b.head+FrameSize])
	b.head += FrameSize
	return frame, true
}

// Len возвращает количество сэмплов в очереди.
func (b *FrameBuffer) Len() int {
	return len(b.buf) - b.head
}

// Reset очищает очередь.
func (b *FrameBuffer) Reset() {
	b.buf = b.buf[:0]
	b.head = 0
}

// compact сдвигает непрочитанный хвост в начало, чтобы буфер не рос бесконечно.
func (b *FrameBuffer) compact() {
	if b.head == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.head:])
	b.buf = b.buf[:n]
	b.head = 0
}
