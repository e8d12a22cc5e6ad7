package models

// Trade document types handled by the extraction pipeline.
const (
	DocCommercialInvoice   = "commercial_invoice"
	DocPackingList         = "packing_list"
	DocBillOfLading        = "bill_of_lading"
	DocImportDeclaration   = "import_declaration"
	DocCertificateOfOrigin = "certificate_of_origin"
	DocOther               = "other"
)

// StandardDocumentTypes seed the documents pipeline of a new import process.
var StandardDocumentTypes = []string{
	DocCommercialInvoice,
	DocPackingList,
	DocBillOfLading,
	DocImportDeclaration,
}

var knownDocumentTypes = map[string]bool{
	DocCommercialInvoice:   true,
	DocPackingList:         true,
	DocBillOfLading:        true,
	DocImportDeclaration:   true,
	DocCertificateOfOrigin: true,
	DocOther:               true,
}

func KnownDocumentType(t string) bool { return knownDocumentTypes[t] }
