package session

import "github.com/Kinder1203/SpeakNode/internal/store"

func analysisWithTopic(title string) store.AnalysisResult {
	return store.AnalysisResult{
		Topics: []store.TopicInput{{Title: title, Summary: "test summary"}},
	}
}
