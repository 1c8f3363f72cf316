package utils

// Controversy 争议度：赞踩越接近越高，取值 [0, 1]
// min(up, down) / max(up, down, 1)，没有任何投票时为 0
func Controversy(up, down int) float64 {
	lo, hi := up, down
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi < 1 {
		hi = 1
	}
	if lo < 0 {
		lo = 0
	}
	return float64(lo) / float64(hi)
}

// TallyDelta 把一次投票从 prev 改为 next 时，赞/踩计数各自的变化量
// prev、next 取值 -1、0、1，0 表示没有投票
func TallyDelta(prev, next int8) (up, down int) {
	switch prev {
	case 1:
		up--
	case -1:
		down--
	}
	switch next {
	case 1:
		up++
	case -1:
		down++
	}
	return up, down
}
