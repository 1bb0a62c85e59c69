package domain

import (
	"time"

	"florencia/src/domain/entities"
)

const TableRecords = "records"

type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// RecordChange é o evento de domínio emitido para cada escrita em um registro.
type RecordChange struct {
	EventID    string          `json:"event_id"`
	Collection string          `json:"collection"`
	Identity   string          `json:"identity"`
	Operation  Operation       `json:"operation"`
	Fields     entities.Fields `json:"fields,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Image is a local binary image waiting to be uploaded.
type Image struct {
	Data        []byte
	ContentType string
	FileName    string
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice é a mensagem exibida ao usuário: um alerta com uma única ação de confirmação.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

type Notifier func(Notice)

// Mensagens exibidas pelos controllers e serviços.
var (
	NoticeProfileSaved   = Notice{Kind: NoticeSuccess, Title: "Perfil actualizado", Message: "Los datos se guardaron correctamente"}
	NoticeProfileLoad    = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudieron cargar los datos del perfil"}
	NoticeProfileSave    = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudo guardar en la base de datos"}
	NoticePhotoUploaded  = Notice{Kind: NoticeSuccess, Title: "Éxito", Message: "Foto de perfil actualizada y guardada en la nube"}
	NoticePhotoUpload    = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudo subir la foto a la nube"}
	NoticeWriteInFlight  = Notice{Kind: NoticeInfo, Title: "Espere", Message: "Hay un guardado en curso"}
	NoticeProductAdded   = Notice{Kind: NoticeSuccess, Title: "Éxito", Message: "Producto agregado correctamente"}
	NoticeProductEdited  = Notice{Kind: NoticeSuccess, Title: "Éxito", Message: "Producto actualizado correctamente"}
	NoticeProductDeleted = Notice{Kind: NoticeSuccess, Title: "Éxito", Message: "Producto eliminado correctamente"}
	NoticeProductAdd     = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudo agregar el producto"}
	NoticeProductEdit    = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudo actualizar el producto"}
	NoticeProductDelete  = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudo eliminar el producto"}
	NoticeCatalogLoad    = Notice{Kind: NoticeError, Title: "Error", Message: "No se pudieron cargar los productos"}
)
