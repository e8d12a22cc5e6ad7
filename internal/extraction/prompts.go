package extraction

import (
	"strings"

	"github.com/importflow/importflow/backend/go-services/internal/models"
)

const systemPrompt = "You are a customs and trade document analyst. You read scanned or digital import documents and answer only with valid JSON. Never invent values: use null for anything not present in the document."

const identifyPrompt = `Classify the attached document. Answer with a JSON object of the form {"documentType": "<type>"} where <type> is one of:
commercial_invoice, packing_list, bill_of_lading, import_declaration, certificate_of_origin, other.
Use "other" when the document matches none of them.`

const commonRules = `
Rules:
- Dates as YYYY-MM-DD.
- Amounts and quantities as numbers without thousands separators.
- Currency as an ISO 4217 code.
- Keep party names and addresses exactly as written.
Return only the JSON object.`

var extractPrompts = map[string]string{
	models.DocCommercialInvoice: `Extract the commercial invoice into a JSON object with the keys:
invoiceNumber, invoiceDate, seller {name, address, taxId}, buyer {name, address, taxId},
currency, incoterm, paymentTerms, items [{description, hsCode, quantity, unit, unitPrice, totalPrice, countryOfOrigin}],
subtotal, freight, insurance, totalAmount.` + commonRules,

	models.DocPackingList: `Extract the packing list into a JSON object with the keys:
packingListNumber, date, shipper {name, address}, consignee {name, address}, invoiceNumber,
packages [{marks, packageType, quantity, description, netWeightKg, grossWeightKg, volumeM3}],
totalPackages, totalNetWeightKg, totalGrossWeightKg, totalVolumeM3.` + commonRules,

	models.DocBillOfLading: `Extract the bill of lading into a JSON object with the keys:
blNumber, issueDate, shipper {name, address}, consignee {name, address}, notifyParty {name, address},
carrier, vessel, voyage, portOfLoading, portOfDischarge, placeOfDelivery,
containers [{number, sealNumber, type, packages, grossWeightKg}], freightTerms.` + commonRules,

	models.DocImportDeclaration: `Extract the import declaration into a JSON object with the keys:
declarationNumber, registrationDate, importer {name, taxId}, customsBroker, customsOffice,
countryOfOrigin, countryOfProvenance, incoterm, currency, exchangeRate,
items [{hsCode, description, quantity, unit, customsValue, dutyRate, dutyAmount}],
totalCustomsValue, totalTaxes.` + commonRules,

	models.DocCertificateOfOrigin: `Extract the certificate of origin into a JSON object with the keys:
certificateNumber, issueDate, issuingAuthority, exporter {name, address}, importer {name, address},
countryOfOrigin, transportDetails, invoiceNumber, items [{description, hsCode, quantity, originCriterion}].` + commonRules,
}

const genericPrompt = `Extract the attached trade document into a JSON object with the keys:
documentTitle, documentNumber, date, issuer {name, address}, recipient {name, address},
references [string], amounts [{label, value, currency}], summary.` + commonRules

// Prompt returns the extraction prompt for documentType, falling back to the
// generic prompt for unknown or "other" types.
func Prompt(documentType string) string {
	if p, ok := extractPrompts[documentType]; ok {
		return p
	}
	return genericPrompt
}

// normalizeType maps a backend's answer onto a known document type.
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	if models.KnownDocumentType(t) {
		return t
	}
	return models.DocOther
}
