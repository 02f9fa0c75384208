package domain

// BuiltinCatalog returns the exercises shipped with the service.
func BuiltinCatalog() *Catalog {
	return NewCatalog(shoulder(), neck(), arms(), breathing())
}

func shoulder() Exercise {
	return Exercise{
		ID:          ExerciseShoulder,
		Name:        "Shoulder Mobility",
		Description: "Rotations & stretches for shoulder recovery",
		Duration:    "5-10 min",
		Icon:        "🦾",
		Steps: []Step{
			Hold("Stand relaxed with arms at your sides.\nTake a deep breath.", 5),
			Target("Slowly raise your right shoulder up\ntowards your ear.", 8, 1, 2, -3),
			Hold("Hold this position.\nBreathe steadily.", 5),
			Hold("Slowly lower your shoulder back down.\nFeel the release.", 8),
			Target("Now raise your left shoulder up\ntowards your ear.", 8, -1, 2, -3),
			Hold("Hold this position.\nKeep breathing.", 5),
			Hold("Slowly lower your shoulder back down.", 8),
			Target("Now raise both shoulders together.\nShrug them up high.", 8, 0, 2.5, -3),
			Hold("Hold at the top.\nFeel the tension.", 5),
			Hold("Let them drop completely.\nRelax and breathe.", 8),
			Hold("Roll both shoulders forward\nin slow circles.", 15),
			Hold("Now roll them backward\nin slow circles.", 15),
			Hold("Excellent work!\nTake a moment to notice how you feel.", 8),
		},
	}
}

func neck() Exercise {
	return Exercise{
		ID:          ExerciseNeck,
		Name:        "Neck Relief",
		Description: "Gentle movements for neck tension",
		Duration:    "5-8 min",
		Icon:        "🧘",
		Steps: []Step{
			Hold("Sit or stand comfortably.\nRelax your shoulders.", 5),
			Target("Look at the target on your RIGHT.\nTurn your head slowly.", 10, 2, 1.6, -2),
			Hold("Hold gently.\nDon't strain.", 5),
			Hold("Return to center slowly.", 5),
			Target("Look at the target on your LEFT.\nTurn your head slowly.", 10, -2, 1.6, -2),
			Hold("Hold gently.\nBreathe.", 5),
			Hold("Return to center.", 5),
			Target("Tilt your head to the RIGHT.\nEar towards shoulder.", 10, 1.5, 1.2, -3),
			Hold("Hold this stretch.\nKeep shoulders down.", 8),
			Hold("Return to center.", 5),
			Target("Tilt your head to the LEFT.\nEar towards shoulder.", 10, -1.5, 1.2, -3),
			Hold("Hold this stretch.", 8),
			Hold("Return to center.\nWell done!", 5),
		},
	}
}

func arms() Exercise {
	return Exercise{
		ID:          ExerciseArms,
		Name:        "Arm Stretches",
		Description: "Full arm range of motion exercises",
		Duration:    "8-12 min",
		Icon:        "💪",
		Steps: []Step{
			Hold("Stand with space around you.\nArms relaxed.", 5),
			Target("Raise your right arm overhead.\nFollow the target.", 10, 0.5, 2.5, -2),
			Hold("Reach up and stretch.\nFeel the lengthening.", 8),
			Hold("Lower slowly.", 5),
			Target("Raise your left arm overhead.\nFollow the target.", 10, -0.5, 2.5, -2),
			Hold("Reach up and stretch.", 8),
			Hold("Lower slowly.", 5),
			Target("Extend both arms to the sides.\nLike a T shape.", 8, 0, 1.6, -3),
			Hold("Make small circles forward.", 15),
			Hold("Now make small circles backward.", 15),
			Target("Cross your right arm over your chest.\nHold with left hand.", 10, -0.5, 1.5, -2),
			Hold("Hold the stretch.\nBreathe deeply.", 10),
			Target("Switch arms.\nLeft arm across chest.", 10, 0.5, 1.5, -2),
			Hold("Hold the stretch.", 10),
			Hold("Release and shake out your arms.\nGreat job!", 8),
		},
	}
}

func breathing() Exercise {
	return Exercise{
		ID:          ExerciseBreathing,
		Name:        "Deep Breathing",
		Description: "Relaxation & breathing exercises",
		Duration:    "5 min",
		Icon:        "🌬️",
		Steps: []Step{
			Hold("Find a comfortable position.\nClose your eyes if you like.", 5),
			Breath("Breathe IN slowly...\nFill your lungs completely.", 4, BreathIn),
			Breath("HOLD your breath gently...", 4, BreathHold),
			Breath("Breathe OUT slowly...\nRelease all tension.", 6, BreathOut),
			Breath("Breathe IN...\nExpand your belly.", 4, BreathIn),
			Breath("HOLD...", 4, BreathHold),
			Breath("Breathe OUT...\nLet everything go.", 6, BreathOut),
			Breath("Breathe IN deeply...", 4, BreathIn),
			Breath("HOLD...", 4, BreathHold),
			Breath("Breathe OUT completely...", 6, BreathOut),
			Breath("Breathe IN...\nFeel the calm.", 4, BreathIn),
			Breath("HOLD...", 4, BreathHold),
			Breath("Breathe OUT...\nRelax deeper.", 6, BreathOut),
			Hold("Return to natural breathing.\nNotice how you feel.", 10),
			Hold("Well done.\nCarry this calm with you.", 5),
		},
	}
}
