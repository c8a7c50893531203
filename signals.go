package weave

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for graph events.
var (
	SignalModelBuilt        = capitan.NewSignal("weave.model.built", "Type model built and cached")
	SignalSerializerCreated = capitan.NewSignal("weave.serializer.created", "Serializer instantiated")
	SignalMarshalStart      = capitan.NewSignal("weave.marshal.start", "Marshal operation beginning")
	SignalMarshalComplete   = capitan.NewSignal("weave.marshal.complete", "Marshal operation finished")
	SignalUnmarshalStart    = capitan.NewSignal("weave.unmarshal.start", "Unmarshal operation beginning")
	SignalUnmarshalComplete = capitan.NewSignal("weave.unmarshal.complete", "Unmarshal operation finished")
)

// Keys for typed event data.
var (
	KeyContentType = capitan.NewStringKey("content_type")
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyCategory    = capitan.NewStringKey("category")
	KeyMembers     = capitan.NewIntKey("members")
	KeySize        = capitan.NewIntKey("size")
	KeyObjects     = capitan.NewIntKey("objects")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitModelBuilt emits an event when a type model is built.
func emitModelBuilt(ctx context.Context, m *Model) {
	capitan.Emit(ctx, SignalModelBuilt,
		KeyTypeName.Field(m.Type.String()),
		KeyCategory.Field(m.Category.String()),
		KeyMembers.Field(len(m.Members)),
	)
}

// emitSerializerCreated emits an event when a serializer is created.
func emitSerializerCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalSerializerCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitMarshalStart emits an event when marshal begins.
func emitMarshalStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalMarshalStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitMarshalComplete emits an event when marshal finishes.
func emitMarshalComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, objects int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyObjects.Field(objects),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalMarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalMarshalComplete, fields...)
	}
}

// emitUnmarshalStart emits an event when unmarshal begins.
func emitUnmarshalStart(ctx context.Context, contentType, typeName string, size int) {
	capitan.Emit(ctx, SignalUnmarshalStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
	)
}

// emitUnmarshalComplete emits an event when unmarshal finishes.
func emitUnmarshalComplete(ctx context.Context, contentType, typeName string, duration time.Duration, objects int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyObjects.Field(objects),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnmarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnmarshalComplete, fields...)
	}
}
