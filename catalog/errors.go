package catalog

import "fmt"

type TopicNotFound string

func (msg TopicNotFound) Error() string {
	return errReport("%s: Topic not found in catalog", string(msg))
}

type InvalidTopicName string

func (msg InvalidTopicName) Error() string {
	return errReport("%s: Invalid topic name", string(msg))
}

type UnableToCreateRoot string

func (msg UnableToCreateRoot) Error() string {
	return errReport("%s: Unable to create root directory", string(msg))
}

func errReport(base, msg string) string {
	return fmt.Sprintf(base, msg)
}
