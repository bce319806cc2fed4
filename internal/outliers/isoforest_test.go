package outliers

import (
	"testing"
)

// clusterWithOutlier builds a tight grid of 50 points plus one far row.
func clusterWithOutlier() [][]float64 {
	matrix := make([][]float64, 0, 51)
	for i := 0; i < 50; i++ {
		matrix = append(matrix, []float64{float64(i % 10), float64(i / 10)})
	}
	matrix = append(matrix, []float64{1000, 1000})
	return matrix
}

func TestIsolationForestFlagsOutlier(t *testing.T) {
	f := NewIsolationForest(0.05, 42)
	labels, err := f.Score(clusterWithOutlier())
	if err != nil {
		t.Fatalf("评分不应报错: %v", err)
	}

	if !labels[50] {
		t.Fatal("远离簇的行应被标记")
	}

	flagged := 0
	for _, l := range labels {
		if l {
			flagged++
		}
	}
	// floor(0.05*51) = 2
	if flagged != 2 {
		t.Fatalf("期望标记 2 行, 实际 %d", flagged)
	}
}

func TestIsolationForestDeterministic(t *testing.T) {
	f := NewIsolationForest(0.1, 42)
	matrix := clusterWithOutlier()

	first, err := f.Score(matrix)
	if err != nil {
		t.Fatalf("评分不应报错: %v", err)
	}
	second, err := f.Score(matrix)
	if err != nil {
		t.Fatalf("评分不应报错: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("位置 %d 两次标签不同", i)
		}
	}
}

func TestIsolationForestFlagsAtLeastOne(t *testing.T) {
	f := NewIsolationForest(0.05, 1)
	labels, err := f.Score([][]float64{{1, 1}, {2, 2}, {3, 3}})
	if err != nil {
		t.Fatalf("评分不应报错: %v", err)
	}

	flagged := 0
	for _, l := range labels {
		if l {
			flagged++
		}
	}
	if flagged != 1 {
		t.Fatalf("小样本应标记 1 行, 实际 %d", flagged)
	}
}

func TestIsolationForestContaminationBounds(t *testing.T) {
	for _, c := range []float64{0, 1, -0.5, 1.5} {
		f := NewIsolationForest(c, 42)
		if _, err := f.Score([][]float64{{1}, {2}}); err == nil {
			t.Fatalf("污染率 %v 应报错", c)
		}
	}
}

func TestIsolationForestEmptyMatrix(t *testing.T) {
	f := NewIsolationForest(0.05, 42)
	labels, err := f.Score(nil)
	if err != nil {
		t.Fatalf("空矩阵不应报错: %v", err)
	}
	if labels != nil {
		t.Fatalf("空矩阵应返回空标签: %v", labels)
	}
}
