package qa

import "testing"

func TestRouteQuestion(t *testing.T) {
	tests := []struct {
		question string
		want     Route
	}{
		{"What equation in section 3 proves convergence?", RoutePaperOnly},
		{"Which function in utils.py implements caching?", RouteCodeOnly},
		{"How does the paper's algorithm map to the train.py loop?", RouteHybrid},
		{"", RouteFallback},
		{"   \t\n", RouteFallback},
		{"Tell me something interesting", RouteFallback},
		{"Where is `main` defined in the repo?", RouteCodeOnly},
		{"Does the paper describe the dataset used by the training script?", RouteHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := RouteQuestion(tt.question); got != tt.want {
				t.Errorf("RouteQuestion(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestRouteQuestionDeterministic(t *testing.T) {
	question := "How does the paper's algorithm map to the train.py loop?"
	first := RouteQuestion(question)
	for i := 0; i < 10; i++ {
		if got := RouteQuestion(question); got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}
