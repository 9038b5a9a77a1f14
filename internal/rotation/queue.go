package rotation

// sitCount is how many players sit when active players are available for a
// team of teamSize.
func sitCount(active, teamSize int) int {
	return max(0, active-teamSize)
}

// split returns the front sitCount ids as sitting and the next teamSize as
// playing. The returned slices do not alias queue.
func split(queue []string, teamSize int) (sitting, playing []string) {
	sit := sitCount(len(queue), teamSize)
	end := min(len(queue), sit+teamSize)
	sitting = append(make([]string, 0, sit), queue[:sit]...)
	playing = append(make([]string, 0, end-sit), queue[sit:end]...)
	return sitting, playing
}

// advanceBy is how far the queue turns after a series. With nobody sitting it
// still turns by one so the role resolution order changes.
func advanceBy(sitting int) int {
	return max(1, sitting)
}

func rotateLeft(queue []string, n int) []string {
	if len(queue) == 0 {
		return queue
	}
	n %= len(queue)
	out := make([]string, 0, len(queue))
	out = append(out, queue[n:]...)
	return append(out, queue[:n]...)
}

func rotateRight(queue []string, n int) []string {
	if len(queue) == 0 {
		return queue
	}
	n %= len(queue)
	return rotateLeft(queue, len(queue)-n)
}
