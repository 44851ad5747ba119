// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slob

// EventName identifies a writer event.
type EventName string

// Soft rejections. The offending record is dropped and writing continues.
const (
	EventTagNameTooLong      EventName = "tag_name_too_long"
	EventTagValueTooLong     EventName = "tag_value_too_long"
	EventTagLimit            EventName = "tag_limit"
	EventContentTooLong      EventName = "content_too_long"
	EventContentTypeTooLong  EventName = "content_type_too_long"
	EventContentTypeLimit    EventName = "content_type_limit"
	EventKeyTooLong          EventName = "key_too_long"
	EventAliasTooLong        EventName = "alias_too_long"
	EventAliasTargetTooLong  EventName = "alias_target_too_long"
	EventTooManyRedirects    EventName = "too_many_redirects"
	EventAliasTargetNotFound EventName = "alias_target_not_found"
	EventNotEncodable        EventName = "not_encodable"
)

// Progress of [Writer.Finalize].
const (
	EventBeginFinalize       EventName = "begin_finalize"
	EventEndFinalize         EventName = "end_finalize"
	EventBeginSort           EventName = "begin_sort"
	EventEndSort             EventName = "end_sort"
	EventBeginResolveAliases EventName = "begin_resolve_aliases"
	EventEndResolveAliases   EventName = "end_resolve_aliases"
	EventBeginMove           EventName = "begin_move"
	EventEndMove             EventName = "end_move"
)

// Event is reported by a [Writer] to its [Observer].
//
// The type of Data depends on the event:
//   - Tag events carry a [Tag].
//   - Key and alias events carry a [Key].
//   - EventContentTooLong carries the content length as an int.
//   - Content type events carry the content type string.
//   - EventTooManyRedirects carries the alias key that could not be resolved.
//   - EventAliasTargetNotFound carries the missing target key.
//   - EventNotEncodable carries the [Tag], [Key], or content type containing
//     text the writer's encoding cannot represent. The length events are
//     only reported for text that can be encoded.
//   - Move events carry the name of the section being moved.
//   - Other progress events carry nil.
type Event struct {
	Name EventName
	Data any
}

// Observer receives writer events.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to the [Observer] interface.
type ObserverFunc func(e Event)

// Observe implements [Observer].
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
