// Package numgroup clusters numeric lists around their median and
// detects numeric-looking string values.
package numgroup

import (
	"math"
	"regexp"
	"sort"
)

var numericPattern = regexp.MustCompile(`^-?\d*\.?\d*$`)

// IsNumeric reports whether the value is a plain decimal number,
// optionally signed or fractional: 123, 123.456, -123, "-123.456".
// Empty strings and bare signs are not numeric.
func IsNumeric(value string) bool {
	switch value {
	case "", "-", ".", "-.":
		return false
	}
	return numericPattern.MatchString(value)
}

// ClosestGroup splits a list of numbers into groups of close values and
// returns the group with the most members.
//
//	[4, 5, 100, 1000, 1500, 1300, 1230, 5000] -> [1000, 1230, 1300, 1500]
//
// When roundToHundred is set, every number is first rounded to the
// nearest hundred. The input is deduplicated and the result is sorted
// ascending. Lists with fewer than four distinct values, and lists whose
// range is already narrow relative to their minimum, pass through as-is.
func ClosestGroup(nums []int, roundToHundred bool) []int {
	if roundToHundred {
		rounded := make([]int, len(nums))
		for i, num := range nums {
			rounded[i] = int(math.Round(float64(num)/100)) * 100
		}
		nums = rounded
	}

	nums = dedupe(nums)
	sort.Ints(nums)

	if len(nums) < 4 {
		return nums
	}

	minNum := nums[0]
	maxNum := nums[len(nums)-1]
	if (maxNum < 10000 && maxNum <= 3*minNum) || (maxNum > 10000 && maxNum <= 2*minNum) {
		return nums
	}

	med := median(nums)

	if len(nums) > 5 {
		threshold := 0.5
		if float64(maxNum) > float64(minNum)*4 {
			threshold = 0.6
		}
		border := med * threshold

		var close []int
		for _, num := range nums {
			if math.Abs(float64(num)-med) <= border {
				close = append(close, num)
			}
		}
		if len(close) == 0 {
			return nums
		}
		return close
	}

	differences := make([]float64, len(nums))
	maxDiff := 0.0
	for i, num := range nums {
		differences[i] = math.Abs(float64(num) - med)
		if differences[i] > maxDiff {
			maxDiff = differences[i]
		}
	}

	threshold := medianFloat(differences)
	if minNum > 5000 {
		threshold = 3 * threshold
	}

	if threshold < 1000 && maxDiff < 1000 {
		return nums
	}

	var groups [][]int
	current := []int{nums[0]}
	for i := 1; i < len(nums); i++ {
		if float64(nums[i]-nums[i-1]) <= threshold {
			current = append(current, nums[i])
		} else {
			groups = append(groups, current)
			current = []int{nums[i]}
		}
	}
	groups = append(groups, current)

	largest := groups[0]
	for _, group := range groups[1:] {
		if len(group) > len(largest) {
			largest = group
		}
	}
	return largest
}

func dedupe(nums []int) []int {
	seen := make(map[int]struct{}, len(nums))
	result := make([]int, 0, len(nums))
	for _, num := range nums {
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		result = append(result, num)
	}
	return result
}

// median of a sorted int slice
func median(sorted []int) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

func medianFloat(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
