package services

import "testing"

func TestClassifyConfirmIntent(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want ConfirmIntent
	}{
		{
			name: "plain_yes",
			msg:  "yes",
			want: IntentConfirm,
		},
		{
			name: "looks_good",
			msg:  "That looks good to me",
			want: IntentConfirm,
		},
		{
			name: "accurate",
			msg:  "accurate, thanks",
			want: IntentConfirm,
		},
		{
			name: "plain_no",
			msg:  "no",
			want: IntentRevise,
		},
		{
			name: "revise_wins_over_confirm",
			msg:  "no, that looks wrong",
			want: IntentRevise,
		},
		{
			name: "wants_change",
			msg:  "please change the suggestion",
			want: IntentRevise,
		},
		{
			name: "negated_accurate",
			msg:  "actually that's not accurate",
			want: IntentRevise,
		},
		{
			name: "isnt_right",
			msg:  "that isn't right",
			want: IntentRevise,
		},
		{
			name: "inaccurate",
			msg:  "the summary is inaccurate",
			want: IntentRevise,
		},
		{
			name: "no_does_not_fire_inside_noticed",
			msg:  "I noticed the summary is accurate",
			want: IntentConfirm,
		},
		{
			name: "unrelated_reply",
			msg:  "the student also worked a night shift",
			want: IntentAmbiguous,
		},
		{
			name: "empty",
			msg:  "   ",
			want: IntentAmbiguous,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyConfirmIntent(tc.msg)
			if got != tc.want {
				t.Fatalf("classifyConfirmIntent(%q)=%v, want %v", tc.msg, got, tc.want)
			}
		})
	}
}
