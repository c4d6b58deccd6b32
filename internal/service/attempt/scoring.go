package attempt

// Score считает процент правильных ответов и награду.
// Награда округляется вниз и вычисляется в целых числах: correct*reward/total.
func Score(correct, total int, reward int64) (float64, int64) {
	if total <= 0 {
		return 0, 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	if reward < 0 {
		reward = 0
	}
	score := float64(correct) / float64(total) * 100
	earned := int64(correct) * reward / int64(total)
	return score, earned
}
